// Package tokencodec mints and parses the signed access/refresh tokens that
// carry a profile's id and the numeric session nonce it was issued against.
package tokencodec

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumicast/core/internal/apperror"
)

// nonceFloor and nonceCeil bound the numeric nonce space. Kept within
// int32 range (rather than the full 10-digit decimal span) since the
// nonce is stored and compared as an int32 session value.
const (
	nonceFloor = 1_000_000_000
	nonceCeil  = math.MaxInt32
)

// claims is the JWT payload: just enough to recover the profile id and the
// nonce it was bound to, plus the registered exp.
type claims struct {
	jwt.RegisteredClaims
	UserID int32 `json:"uid"`
	Nonce  int32 `json:"num"`
}

// NewNonce draws a fresh random value from the 10-digit nonce space. Called
// on login and refresh (binding the session to the new token pair) and when
// minting registration and recovery confirmation tokens.
func NewNonce() (int32, error) {
	span := big.NewInt(nonceCeil - nonceFloor + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, apperror.New(apperror.KindInternal, "nonce_generation_failed", err.Error())
	}
	return int32(n.Int64() + nonceFloor), nil
}

// Encode signs a token binding userID to nonce, expiring after ttl. An
// empty secret is rejected rather than silently signing with an empty
// HMAC key.
func Encode(userID, nonce int32, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", apperror.New(apperror.KindInternal, "empty_secret", "secret must not be empty")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Nonce:  nonce,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", apperror.New(apperror.KindInternal, "token_signing_failed", err.Error())
	}
	return signed, nil
}

// Decode verifies tokenStr against secret and recovers the userID/nonce pair
// it was minted with. Expiry and signature failures both surface as
// apperror.CodeInvalidOrExpiredToken; the caller cannot and need not tell
// them apart.
func Decode(tokenStr, secret string) (userID, nonce int32, err error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, 0, apperror.New(apperror.KindUnauthorized, apperror.CodeInvalidOrExpiredToken, "token has expired")
		}
		return 0, 0, apperror.New(apperror.KindUnauthorized, apperror.CodeInvalidOrExpiredToken, "token could not be verified")
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return 0, 0, apperror.New(apperror.KindUnauthorized, apperror.CodeInvalidOrExpiredToken, "token could not be verified")
	}

	return c.UserID, c.Nonce, nil
}
