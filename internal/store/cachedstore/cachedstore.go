// Package cachedstore wraps a store.Store with cache-aside reads for the
// two lookups the identity core serves most often: profile-by-ID and
// stream-by-ID. The profile and stream modify/delete methods invalidate the
// matching cache entry; every other method passes straight through to the
// underlying store unchanged.
package cachedstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lumicast/core/internal/cache"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/pkg/log"
)

// Store decorates a store.Store with cache-aside profile and stream reads.
type Store struct {
	store.Store
	profiles cache.ProfileCache
	streams  cache.StreamCache
	ttl      time.Duration
	sfGet    singleflight.Group
}

// New builds a cache-aside decorator around next. ttl bounds how long a hit
// may be served before falling back to next.
func New(next store.Store, profiles cache.ProfileCache, streams cache.StreamCache, ttl time.Duration) *Store {
	return &Store{Store: next, profiles: profiles, streams: streams, ttl: ttl}
}

// GetProfileByUserID serves from cache when includeHash is false; password
// hashes are never cached, so a hash-bearing read always goes to the store
// and leaves the cache untouched.
func (s *Store) GetProfileByUserID(ctx context.Context, userID int32, includeHash bool) (*domain.Profile, error) {
	if includeHash {
		return s.Store.GetProfileByUserID(ctx, userID, true)
	}

	sfKey := "profile:" + strconv.Itoa(int(userID))
	result, err, _ := s.sfGet.Do(sfKey, func() (interface{}, error) {
		if cached, err := s.profiles.Get(ctx, userID); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Ctx(ctx).Warn().Err(err).Msg("profile cache get error")
		}

		profile, err := s.Store.GetProfileByUserID(ctx, userID, false)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			if err := s.profiles.Set(ctx, profile, s.ttl); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("profile cache set error")
			}
		}
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*domain.Profile), nil
}

// ModifyProfile invalidates the cached row before delegating, so a reader
// racing the write sees at worst one extra store round trip rather than a
// stale cached value.
func (s *Store) ModifyProfile(ctx context.Context, userID int32, patch store.ProfilePatch) (*domain.Profile, error) {
	s.invalidateProfile(ctx, userID)
	return s.Store.ModifyProfile(ctx, userID, patch)
}

// DeleteProfile invalidates the cached row before delegating.
func (s *Store) DeleteProfile(ctx context.Context, userID int32) (*domain.Profile, error) {
	s.invalidateProfile(ctx, userID)
	return s.Store.DeleteProfile(ctx, userID)
}

func (s *Store) invalidateProfile(ctx context.Context, userID int32) {
	if err := s.profiles.Delete(ctx, userID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("profile cache invalidation error")
	}
}

// GetStreamByID serves from cache only for the unfiltered (no owner check)
// read; an owner-scoped lookup always goes to the store, since the cached
// entry carries no information about who asked.
func (s *Store) GetStreamByID(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	if ownerID != nil {
		return s.Store.GetStreamByID(ctx, id, ownerID)
	}

	sfKey := "stream:" + strconv.Itoa(int(id))
	type pair struct {
		stream *domain.Stream
		tags   []domain.Tag
	}
	result, err, _ := s.sfGet.Do(sfKey, func() (interface{}, error) {
		if cachedStream, cachedTags, err := s.streams.Get(ctx, id); err == nil {
			return pair{cachedStream, cachedTags}, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Ctx(ctx).Warn().Err(err).Msg("stream cache get error")
		}

		streamRow, tags, err := s.Store.GetStreamByID(ctx, id, nil)
		if err != nil {
			return pair{}, err
		}
		if streamRow != nil {
			if err := s.streams.Set(ctx, streamRow, tags, s.ttl); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("stream cache set error")
			}
		}
		return pair{streamRow, tags}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	p := result.(pair)
	return p.stream, p.tags, nil
}

// ModifyStream invalidates the cached row before delegating.
func (s *Store) ModifyStream(ctx context.Context, id int32, ownerID *int32, patch store.StreamPatch, tags []string) (*domain.Stream, []domain.Tag, error) {
	s.invalidateStream(ctx, id)
	return s.Store.ModifyStream(ctx, id, ownerID, patch, tags)
}

// DeleteStream invalidates the cached row before delegating.
func (s *Store) DeleteStream(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	s.invalidateStream(ctx, id)
	return s.Store.DeleteStream(ctx, id, ownerID)
}

func (s *Store) invalidateStream(ctx context.Context, id int32) {
	if err := s.streams.Delete(ctx, id); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("stream cache invalidation error")
	}
}
