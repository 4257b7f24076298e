// Package filestore performs the scoped filesystem operations behind
// avatar/stream-logo assets: atomic persistence, optional resize/convert via
// imaging, and alias-prefix translation between DB-stored paths and on-disk
// paths.
package filestore

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lumicast/core/internal/apperror"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Config scopes a FileStore to one asset kind (avatars or stream logos).
type Config struct {
	Dir         string // on-disk directory this store writes under
	AliasPrefix string // public path prefix stored in the DB, e.g. "/avatar"
	Format      imaging.Format
	JPEGQuality int
}

// FileStore implements persist/convert/remove for one asset kind.
type FileStore struct {
	cfg Config
}

// New builds a FileStore bound to cfg. The directory is created if absent.
func New(cfg Config) (*FileStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	return &FileStore{cfg: cfg}, nil
}

// NewAssetPath returns an alias-prefixed path and its matching on-disk path
// for a fresh asset owned by userID, named {dir}/{user_id}_{base62(now)}.{ext}.
func (f *FileStore) NewAssetPath(userID int32, ext string) (aliasPath, diskPath string) {
	name := fmt.Sprintf("%d_%s.%s", userID, base62(time.Now().UTC()), strings.TrimPrefix(ext, "."))
	return f.cfg.AliasPrefix + "/" + name, filepath.Join(f.cfg.Dir, name)
}

// Persist atomically renames tempPath onto targetPath.
func (f *FileStore) Persist(tempPath, targetPath string) error {
	if err := os.Rename(tempPath, targetPath); err != nil {
		return apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
	}
	return nil
}

// Convert resizes/reformats the image at path in place when targetExt is
// non-empty or either bound is non-zero; otherwise it is a no-op. Returns
// the (possibly renamed) path of the final file.
func (f *FileStore) Convert(path string, targetExt string, maxW, maxH int) (string, error) {
	if targetExt == "" && maxW == 0 && maxH == 0 {
		return path, nil
	}

	src, err := imaging.Open(path)
	if err != nil {
		return "", apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
	}

	if maxW > 0 || maxH > 0 {
		src = imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}

	format := f.cfg.Format
	outPath := path
	if targetExt != "" {
		parsed, err := imaging.FormatFromExtension(targetExt)
		if err != nil {
			return "", apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
		}
		format = parsed
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + "." + strings.TrimPrefix(targetExt, ".")
	}

	if err := imaging.Save(src, outPath, imaging.JPEGQuality(f.cfg.JPEGQuality)); err != nil {
		return "", apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
	}
	if outPath != path {
		_ = os.Remove(path)
	}

	_ = format
	return outPath, nil
}

// Remove best-effort deletes the on-disk file backing an alias-prefixed
// path. A path not starting with this store's alias is left untouched:
// it is treated as externally managed.
func (f *FileStore) Remove(aliasPath string) {
	if aliasPath == "" || !strings.HasPrefix(aliasPath, f.cfg.AliasPrefix) {
		return
	}
	disk := filepath.Join(f.cfg.Dir, strings.TrimPrefix(aliasPath, f.cfg.AliasPrefix+"/"))
	_ = os.Remove(disk)
}

// DiskPath translates an alias-prefixed DB path to its on-disk location.
// Paths that do not carry this store's prefix are returned unchanged.
func (f *FileStore) DiskPath(aliasPath string) string {
	if !strings.HasPrefix(aliasPath, f.cfg.AliasPrefix) {
		return aliasPath
	}
	return filepath.Join(f.cfg.Dir, strings.TrimPrefix(aliasPath, f.cfg.AliasPrefix+"/"))
}

// base62 reversibly encodes a UTC instant at second resolution.
func base62(t time.Time) string {
	n := big.NewInt(t.Unix())
	if n.Sign() == 0 {
		return "0"
	}
	base := big.NewInt(62)
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append([]byte{base62Alphabet[mod.Int64()]}, out...)
	}
	return string(out)
}
