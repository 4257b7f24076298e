package stream

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/filestore"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/store/memstore"
)

func newTestService(t *testing.T) (*Service, *memstore.Store, int32) {
	t.Helper()
	st := memstore.New()
	logos, err := filestore.New(filestore.Config{Dir: t.TempDir(), AliasPrefix: "/logo", Format: imaging.JPEG, JPEGQuality: 85})
	require.NoError(t, err)
	cfg := Config{MaxLogoSize: 1024, ValidMimes: []string{"image/png"}, TargetExt: "", MaxW: 0, MaxH: 0}
	svc := New(st, logos, exec.New(4), cfg)

	profile, err := st.CreateProfile(context.Background(), store.NewProfile{Nickname: "alice", Email: "alice@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	return svc, st, profile.UserID
}

func TestCreateStreamSucceeds(t *testing.T) {
	svc, _, ownerID := newTestService(t)

	created, tags, err := svc.Create(context.Background(), ownerID, CreateInput{
		Title:     "My stream",
		StartTime: time.Now().Add(time.Hour),
		Tags:      []string{"gaming", "chill"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StreamWaiting, created.State)
	assert.Len(t, tags, 2)
}

func TestCreateStreamRejectsPastStartTime(t *testing.T) {
	svc, _, ownerID := newTestService(t)

	_, _, err := svc.Create(context.Background(), ownerID, CreateInput{
		Title:     "Past stream",
		StartTime: time.Now().Add(-time.Hour),
		Tags:      []string{"gaming"},
	})
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestCreateStreamRejectsEmptyTags(t *testing.T) {
	svc, _, ownerID := newTestService(t)

	_, _, err := svc.Create(context.Background(), ownerID, CreateInput{
		Title:     "No tags",
		StartTime: time.Now().Add(time.Hour),
	})
	var verrs apperror.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestCreateStreamWithLogoUpload(t *testing.T) {
	svc, _, ownerID := newTestService(t)
	data := bytes.Repeat([]byte{0x01}, 64)

	created, _, err := svc.Create(context.Background(), ownerID, CreateInput{
		Title:     "Logo stream",
		StartTime: time.Now().Add(time.Hour),
		Tags:      []string{"music"},
		Logo:      LogoUpload{Present: true, Size: int64(len(data)), ContentType: "image/png", Ext: ".png", Reader: bytes.NewReader(data)},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Logo)
}

func TestUpdateAppliesSparsePatch(t *testing.T) {
	svc, st, ownerID := newTestService(t)
	created, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "Original", StartTime: time.Now().Add(time.Hour), Tags: []string{"a"}})
	require.NoError(t, err)

	current, _, err := st.GetStreamByID(context.Background(), created.ID, nil)
	require.NoError(t, err)

	newTitle := "Updated"
	updated, _, err := svc.Update(context.Background(), created.ID, &ownerID, current, UpdateInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
}

func TestUpdateRejectsWrongOwner(t *testing.T) {
	svc, st, ownerID := newTestService(t)
	created, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "Original", StartTime: time.Now().Add(time.Hour), Tags: []string{"a"}})
	require.NoError(t, err)
	current, _, err := st.GetStreamByID(context.Background(), created.ID, nil)
	require.NoError(t, err)

	newTitle := "Hijacked"
	otherOwner := ownerID + 1
	updated, _, err := svc.Update(context.Background(), created.ID, &otherOwner, current, UpdateInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestToggleStateFollowsAllowedTransitions(t *testing.T) {
	svc, st, ownerID := newTestService(t)
	created, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "Live test", StartTime: time.Now().Add(time.Hour), Tags: []string{"a"}})
	require.NoError(t, err)

	current, _, err := st.GetStreamByID(context.Background(), created.ID, nil)
	require.NoError(t, err)
	updated, _, err := svc.ToggleState(context.Background(), created.ID, &ownerID, current, domain.StreamPreparing)
	require.NoError(t, err)
	assert.Equal(t, domain.StreamPreparing, updated.State)
	assert.True(t, updated.Live)

	updated, _, err = svc.ToggleState(context.Background(), created.ID, &ownerID, updated, domain.StreamStarted)
	require.NoError(t, err)
	assert.Equal(t, domain.StreamStarted, updated.State)
	require.NotNil(t, updated.Started)
}

func TestToggleStateRejectsIllegalTransition(t *testing.T) {
	svc, st, ownerID := newTestService(t)
	created, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "Illegal", StartTime: time.Now().Add(time.Hour), Tags: []string{"a"}})
	require.NoError(t, err)
	current, _, err := st.GetStreamByID(context.Background(), created.ID, nil)
	require.NoError(t, err)

	_, _, err = svc.ToggleState(context.Background(), created.ID, &ownerID, current, domain.StreamStarted)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidStreamState, appErr.Code)
}

func TestToggleStateRejectsSecondLiveStream(t *testing.T) {
	svc, st, ownerID := newTestService(t)

	first, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "First", StartTime: time.Now().Add(time.Hour), Tags: []string{"a"}})
	require.NoError(t, err)
	firstCurrent, _, err := st.GetStreamByID(context.Background(), first.ID, nil)
	require.NoError(t, err)
	_, _, err = svc.ToggleState(context.Background(), first.ID, &ownerID, firstCurrent, domain.StreamPreparing)
	require.NoError(t, err)

	second, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "Second", StartTime: time.Now().Add(time.Hour), Tags: []string{"b"}})
	require.NoError(t, err)
	secondCurrent, _, err := st.GetStreamByID(context.Background(), second.ID, nil)
	require.NoError(t, err)

	_, _, err = svc.ToggleState(context.Background(), second.ID, &ownerID, secondCurrent, domain.StreamPreparing)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeExistIsActiveStream, appErr.Code)
}

func TestDeleteRemovesStream(t *testing.T) {
	svc, st, ownerID := newTestService(t)
	created, _, err := svc.Create(context.Background(), ownerID, CreateInput{Title: "Goner", StartTime: time.Now().Add(time.Hour), Tags: []string{"a"}})
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), created.ID, &ownerID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	got, _, err := st.GetStreamByID(context.Background(), created.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteRejectsUnknownStream(t *testing.T) {
	svc, _, ownerID := newTestService(t)

	deleted, err := svc.Delete(context.Background(), 999, &ownerID)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}
