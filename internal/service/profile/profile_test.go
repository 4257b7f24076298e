package profile

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/filestore"
	"github.com/lumicast/core/internal/hasher"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/store/memstore"
)

var fastParams = hasher.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService(t *testing.T) (*Service, *memstore.Store, *domain.Profile) {
	t.Helper()
	st := memstore.New()
	h := hasher.New(fastParams)
	avatars, err := filestore.New(filestore.Config{Dir: t.TempDir(), AliasPrefix: "/avatar", Format: imaging.JPEG, JPEGQuality: 85})
	require.NoError(t, err)
	cfg := Config{MaxAvatarSize: 1024, ValidMimes: []string{"image/png"}, TargetExt: "", MaxW: 0, MaxH: 0}
	svc := New(st, h, avatars, exec.New(4), cfg)

	hash, err := h.Encode("oldpass1")
	require.NoError(t, err)
	p, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "alice", Email: "alice@example.com", Password: hash, Role: domain.RoleUser})
	require.NoError(t, err)

	return svc, st, p
}

func TestUpdateChangesNicknameAndEmail(t *testing.T) {
	svc, _, caller := newTestService(t)
	newNick := "alice2"
	newEmail := "alice2@example.com"

	updated, err := svc.Update(context.Background(), caller, UpdateInput{Nickname: &newNick, Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Nickname)
	assert.Equal(t, "alice2@example.com", updated.Email)
	assert.Empty(t, updated.Password)
}

func TestUpdateRejectsNicknameConflict(t *testing.T) {
	svc, st, caller := newTestService(t)
	_, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "bob", Email: "bob@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	taken := "bob"
	_, err = svc.Update(context.Background(), caller, UpdateInput{Nickname: &taken})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeNicknameAlreadyUse, appErr.Code)
}

func TestUpdateAcceptsValidRole(t *testing.T) {
	svc, _, caller := newTestService(t)
	role := "Admin"
	updated, err := svc.Update(context.Background(), caller, UpdateInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)
}

func TestUpdateRejectsUnknownRole(t *testing.T) {
	svc, _, caller := newTestService(t)
	role := "Superuser"
	_, err := svc.Update(context.Background(), caller, UpdateInput{Role: &role})
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestUpdateRejectsInvalidNickname(t *testing.T) {
	svc, _, caller := newTestService(t)
	bad := "x"
	_, err := svc.Update(context.Background(), caller, UpdateInput{Nickname: &bad})
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestUpdateSetsAvatarFromUpload(t *testing.T) {
	svc, _, caller := newTestService(t)
	data := bytes.Repeat([]byte{0xAB}, 128)

	updated, err := svc.Update(context.Background(), caller, UpdateInput{
		Avatar: AvatarUpload{Present: true, Size: int64(len(data)), ContentType: "image/png", Ext: ".png", Reader: bytes.NewReader(data)},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Avatar)

	diskPath := svc.avatars.DiskPath(*updated.Avatar)
	_, err = os.Stat(diskPath)
	assert.NoError(t, err)
}

func TestUpdateRejectsOversizedAvatar(t *testing.T) {
	svc, _, caller := newTestService(t)
	data := bytes.Repeat([]byte{0xAB}, 2048)

	_, err := svc.Update(context.Background(), caller, UpdateInput{
		Avatar: AvatarUpload{Present: true, Size: int64(len(data)), ContentType: "image/png", Ext: ".png", Reader: bytes.NewReader(data)},
	})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidFileSize, appErr.Code)
}

func TestUpdateRejectsDisallowedMime(t *testing.T) {
	svc, _, caller := newTestService(t)
	data := []byte("x")

	_, err := svc.Update(context.Background(), caller, UpdateInput{
		Avatar: AvatarUpload{Present: true, Size: int64(len(data)), ContentType: "image/gif", Ext: ".gif", Reader: bytes.NewReader(data)},
	})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidFileType, appErr.Code)
}

func TestUpdateClearsAvatarOnZeroSizePresence(t *testing.T) {
	svc, st, caller := newTestService(t)
	avatar := "/avatar/existing.png"
	_, err := st.ModifyProfile(context.Background(), caller.UserID, store.ProfilePatch{Avatar: func() **string { v := &avatar; return &v }()})
	require.NoError(t, err)
	caller.Avatar = &avatar

	updated, err := svc.Update(context.Background(), caller, UpdateInput{Avatar: AvatarUpload{Present: true, Size: 0}})
	require.NoError(t, err)
	assert.Nil(t, updated.Avatar)
}

func TestChangePasswordRequiresCorrectCurrentPassword(t *testing.T) {
	svc, _, caller := newTestService(t)

	_, err := svc.ChangePassword(context.Background(), caller, "wrongpass1", "newpass1")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodePasswordIncorrect, appErr.Code)
}

func TestChangePasswordRejectsSameValue(t *testing.T) {
	svc, _, caller := newTestService(t)

	_, err := svc.ChangePassword(context.Background(), caller, "oldpass1", "oldpass1")
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestChangePasswordSucceeds(t *testing.T) {
	svc, st, caller := newTestService(t)

	updated, err := svc.ChangePassword(context.Background(), caller, "oldpass1", "newpass1")
	require.NoError(t, err)
	assert.Empty(t, updated.Password)

	stored, err := st.GetProfileByUserID(context.Background(), caller.UserID, true)
	require.NoError(t, err)
	assert.NotEqual(t, "oldpass1", stored.Password)
}

func TestDeleteRemovesProfile(t *testing.T) {
	svc, st, caller := newTestService(t)

	deleted, err := svc.Delete(context.Background(), caller.UserID)
	require.NoError(t, err)
	assert.Equal(t, caller.UserID, deleted.UserID)

	got, err := st.GetProfileByUserID(context.Background(), caller.UserID, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteRejectsUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	deleted, err := svc.Delete(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}
