// Package hasher implements password hashing and verification using
// Argon2id, with per-hash salt embedded in a self-describing PHC-style
// string.
package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/lumicast/core/internal/apperror"
)

// Params tunes the Argon2id KDF.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams mirrors the OWASP-balanced settings used across the corpus.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher encodes and verifies password hashes.
type Hasher struct {
	params Params
}

// New constructs a Hasher. A zero-value Params falls back to DefaultParams.
func New(params Params) *Hasher {
	if params == (Params{}) {
		params = DefaultParams
	}
	return &Hasher{params: params}
}

// Encode hashes password, returning an encoded string in the form
// $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func (h *Hasher) Encode(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", apperror.New(apperror.KindInternal, "hash_compute_failed", err.Error())
	}

	sum := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether password matches encodedHash. A malformed stored
// hash is distinguished from a simple mismatch via the returned error.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	params, salt, want, err := decode(encodedHash)
	if err != nil {
		return false, apperror.New(apperror.KindInternal, apperror.CodeInvalidHash, err.Error())
	}

	got := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decode(encodedHash string) (Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, err
	}
	if version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("incompatible argon2 version")
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, err
	}

	return p, salt, hash, nil
}
