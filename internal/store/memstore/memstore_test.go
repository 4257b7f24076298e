package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/store"
)

func TestCreateProfileAssignsIDAndSession(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "alice", Email: "alice@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.UserID)

	sess, err := s.FindSessionByUserID(ctx, p.UserID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Nil(t, sess.NumToken)
}

func TestGetProfileByUserIDHidesHashUnlessRequested(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "bob", Email: "bob@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	withHash, err := s.GetProfileByUserID(ctx, p.UserID, true)
	require.NoError(t, err)
	assert.Equal(t, "hash", withHash.Password)

	withoutHash, err := s.GetProfileByUserID(ctx, p.UserID, false)
	require.NoError(t, err)
	assert.Empty(t, withoutHash.Password)
}

func TestUniquenessCheckAcrossProfilesAndPending(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "carol", Email: "carol@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)
	_, err = s.CreatePendingRegistration(ctx, "dave", "dave@example.com", "hash", time.Now().Add(time.Hour))
	require.NoError(t, err)

	conflict, err := s.UniquenessCheck(ctx, "carol", "")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.True(t, conflict.NicknameConflict)

	conflict, err = s.UniquenessCheck(ctx, "dave", "")
	require.NoError(t, err)
	require.NotNil(t, conflict)

	conflict, err = s.UniquenessCheck(ctx, "nobody", "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestModifyProfileAppliesSparsePatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "erin", Email: "erin@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	newEmail := "erin2@example.com"
	updated, err := s.ModifyProfile(ctx, p.UserID, store.ProfilePatch{Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, "erin2@example.com", updated.Email)
	assert.Equal(t, "erin", updated.Nickname)
}

func TestDeleteProfileRemovesProfileAndSession(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "frank", Email: "frank@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	deleted, err := s.DeleteProfile(ctx, p.UserID)
	require.NoError(t, err)
	require.NotNil(t, deleted)

	got, err := s.GetProfileByUserID(ctx, p.UserID, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	sess, err := s.FindSessionByUserID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestPendingRegistrationSweep(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreatePendingRegistration(ctx, "gina", "gina@example.com", "hash", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.CreatePendingRegistration(ctx, "hank", "hank@example.com", "hash", time.Now().Add(time.Hour))
	require.NoError(t, err)

	n, err := s.DeletePendingRegistrationsBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpsertPendingRecoveryIsIdempotentPerUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "ida", Email: "ida@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	first, err := s.UpsertPendingRecovery(ctx, p.UserID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	second, err := s.UpsertPendingRecovery(ctx, p.UserID, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStreamCreateModifyDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "jack", Email: "jack@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	stream, tags, err := s.CreateStream(ctx, domain.Stream{UserID: p.UserID, Title: "Stream", StartTime: time.Now(), State: domain.StreamWaiting}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	wrongOwner := p.UserID + 1
	missed, _, err := s.ModifyStream(ctx, stream.ID, &wrongOwner, store.StreamPatch{}, nil)
	require.NoError(t, err)
	assert.Nil(t, missed)

	newTitle := "Renamed"
	updated, updatedTags, err := s.ModifyStream(ctx, stream.ID, &p.UserID, store.StreamPatch{Title: &newTitle}, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Len(t, updatedTags, 1)

	deleted, deletedTags, err := s.DeleteStream(ctx, stream.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Len(t, deletedTags, 1)

	gone, _, err := s.GetStreamByID(ctx, stream.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFindActiveStreamByUserIDHonorsLiveAndExcept(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, store.NewProfile{Nickname: "kim", Email: "kim@example.com", Password: "hash", Role: domain.RoleUser})
	require.NoError(t, err)

	stream, _, err := s.CreateStream(ctx, domain.Stream{UserID: p.UserID, Title: "Live", StartTime: time.Now(), State: domain.StreamStarted, Live: true}, nil)
	require.NoError(t, err)

	active, err := s.FindActiveStreamByUserID(ctx, p.UserID, nil)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, stream.ID, active.ID)

	excluded, err := s.FindActiveStreamByUserID(ctx, p.UserID, &stream.ID)
	require.NoError(t, err)
	assert.Nil(t, excluded)
}
