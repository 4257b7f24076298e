package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/hasher"
	"github.com/lumicast/core/internal/mailer"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/store/memstore"
	"github.com/lumicast/core/internal/tokencodec"
)

var fastParams = hasher.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService(t *testing.T, clearSession bool) (*Service, *memstore.Store, Config) {
	t.Helper()
	st := memstore.New()
	h := hasher.New(fastParams)
	m := mailer.New(mailer.Config{Host: "127.0.0.1", Port: 0, From: "no-reply@example.com"})
	cfg := Config{Secret: "jwt-secret", Duration: 20 * time.Minute, Domain: "https://lumicast.test", Subject: "Reset your password", ClearSessionOnConfirm: clearSession}
	return New(st, h, m, exec.New(4), cfg), st, cfg
}

func TestRequestRejectsUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t, true)

	_, err := svc.Request(context.Background(), "nobody@example.com")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeUserNotFound, appErr.Code)
}

func TestRequestRejectsInvalidEmailFormat(t *testing.T) {
	svc, _, _ := newTestService(t, true)

	_, err := svc.Request(context.Background(), "not-an-email")
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestRequestFailsWhenEmailCannotBeSent(t *testing.T) {
	svc, st, _ := newTestService(t, true)
	_, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "alice", Email: "alice@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = svc.Request(context.Background(), "alice@example.com")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeErrorSendingEmail, appErr.Code)
}

func TestConfirmSetsNewPasswordAndClearsSession(t *testing.T) {
	svc, st, cfg := newTestService(t, true)
	profile, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "bob", Email: "bob@example.com", Password: "old-hash", Role: domain.RoleUser})
	require.NoError(t, err)

	nonce := int32(42)
	_, err = st.ModifySession(context.Background(), profile.UserID, &nonce)
	require.NoError(t, err)

	pending, err := st.UpsertPendingRecovery(context.Background(), profile.UserID, time.Now().Add(cfg.Duration))
	require.NoError(t, err)

	tokNonce, err := tokencodec.NewNonce()
	require.NoError(t, err)
	token, err := tokencodec.Encode(pending.ID, tokNonce, cfg.Secret, cfg.Duration)
	require.NoError(t, err)

	updated, err := svc.Confirm(context.Background(), token, "newpass1")
	require.NoError(t, err)
	assert.Empty(t, updated.Password)

	stored, err := st.GetProfileByUserID(context.Background(), profile.UserID, true)
	require.NoError(t, err)
	assert.NotEqual(t, "old-hash", stored.Password)

	sess, err := st.FindSessionByUserID(context.Background(), profile.UserID)
	require.NoError(t, err)
	assert.Nil(t, sess.NumToken, "confirm must clear the session when configured to")

	stillPending, err := st.FindPendingRecoveryByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Nil(t, stillPending)
}

func TestConfirmPreservesSessionWhenNotConfigured(t *testing.T) {
	svc, st, cfg := newTestService(t, false)
	profile, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "carol", Email: "carol@example.com", Password: "old-hash", Role: domain.RoleUser})
	require.NoError(t, err)

	nonce := int32(7)
	_, err = st.ModifySession(context.Background(), profile.UserID, &nonce)
	require.NoError(t, err)

	pending, err := st.UpsertPendingRecovery(context.Background(), profile.UserID, time.Now().Add(cfg.Duration))
	require.NoError(t, err)

	tokNonce, err := tokencodec.NewNonce()
	require.NoError(t, err)
	token, err := tokencodec.Encode(pending.ID, tokNonce, cfg.Secret, cfg.Duration)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), token, "newpass1")
	require.NoError(t, err)

	sess, err := st.FindSessionByUserID(context.Background(), profile.UserID)
	require.NoError(t, err)
	require.NotNil(t, sess.NumToken)
	assert.Equal(t, int32(7), *sess.NumToken)
}

func TestConfirmRejectsWeakNewPassword(t *testing.T) {
	svc, st, cfg := newTestService(t, true)
	profile, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "dave", Email: "dave@example.com", Password: "old-hash", Role: domain.RoleUser})
	require.NoError(t, err)
	pending, err := st.UpsertPendingRecovery(context.Background(), profile.UserID, time.Now().Add(cfg.Duration))
	require.NoError(t, err)
	tokNonce, err := tokencodec.NewNonce()
	require.NoError(t, err)
	token, err := tokencodec.Encode(pending.ID, tokNonce, cfg.Secret, cfg.Duration)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), token, "weak")
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestConfirmRejectsUnknownPendingID(t *testing.T) {
	svc, _, cfg := newTestService(t, true)
	tokNonce, err := tokencodec.NewNonce()
	require.NoError(t, err)
	token, err := tokencodec.Encode(999, tokNonce, cfg.Secret, cfg.Duration)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), token, "newpass1")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeRecoveryNotFound, appErr.Code)
}
