package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	fs, err := New(Config{Dir: dir, AliasPrefix: "/avatar", Format: imaging.JPEG, JPEGQuality: 85})
	require.NoError(t, err)
	return fs
}

func TestNewAssetPathShape(t *testing.T) {
	fs := newTestStore(t)
	alias, disk := fs.NewAssetPath(7, ".png")

	assert.Contains(t, alias, "/avatar/7_")
	assert.Contains(t, alias, ".png")
	assert.Contains(t, disk, "7_")
}

func TestPersistRenamesFile(t *testing.T) {
	fs := newTestStore(t)
	tempDir := t.TempDir()
	tempPath := filepath.Join(tempDir, "incoming")
	require.NoError(t, os.WriteFile(tempPath, []byte("data"), 0o644))

	_, target := fs.NewAssetPath(1, "bin")
	require.NoError(t, fs.Persist(tempPath, target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveIgnoresForeignPrefix(t *testing.T) {
	fs := newTestStore(t)
	// A path outside this store's alias prefix must be left untouched, even
	// if a file happened to exist at the translated location.
	fs.Remove("/external/managed/path.png")
}

func TestRemoveDeletesOwnAsset(t *testing.T) {
	fs := newTestStore(t)
	alias, disk := fs.NewAssetPath(3, "png")
	require.NoError(t, os.WriteFile(disk, []byte("x"), 0o644))

	fs.Remove(alias)

	_, err := os.Stat(disk)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskPathTranslatesAlias(t *testing.T) {
	fs := newTestStore(t)
	alias, disk := fs.NewAssetPath(9, "png")
	assert.Equal(t, disk, fs.DiskPath(alias))
}

func TestDiskPathLeavesForeignPathUnchanged(t *testing.T) {
	fs := newTestStore(t)
	foreign := "/cdn/externally-managed.png"
	assert.Equal(t, foreign, fs.DiskPath(foreign))
}

func TestConvertNoopWithoutTargetOrBounds(t *testing.T) {
	fs := newTestStore(t)
	_, disk := fs.NewAssetPath(1, "png")
	require.NoError(t, os.WriteFile(disk, []byte("not-a-real-image"), 0o644))

	out, err := fs.Convert(disk, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, disk, out)
}
