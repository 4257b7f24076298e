// Package memstore is an in-memory store.Store used by service-level tests,
// following the map-backed fake-repository style used across the corpus
// rather than a generated or recorded mock.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/store"
)

// Store is a single-process, mutex-guarded fake of store.Store.
type Store struct {
	mu sync.Mutex

	nextProfileID  int32
	nextPendingRID int32
	nextPendingCID int32
	nextStreamID   int32
	nextTagID      int32

	profiles    map[int32]*domain.Profile
	sessions    map[int32]*domain.Session
	pendingRegs map[int32]*domain.PendingRegistration
	pendingRecs map[int32]*domain.PendingRecovery
	streams     map[int32]*domain.Stream
	tags        map[int32][]domain.Tag
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		profiles:    make(map[int32]*domain.Profile),
		sessions:    make(map[int32]*domain.Session),
		pendingRegs: make(map[int32]*domain.PendingRegistration),
		pendingRecs: make(map[int32]*domain.PendingRecovery),
		streams:     make(map[int32]*domain.Stream),
		tags:        make(map[int32][]domain.Tag),
	}
}

func clone[T any](v T) *T {
	cp := v
	return &cp
}

func (s *Store) FindProfileByNicknameOrEmail(_ context.Context, nickname, email string, includeHash bool) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if (nickname != "" && p.Nickname == nickname) || (email != "" && p.Email == email) {
			cp := *p
			if !includeHash {
				cp.Password = ""
			}
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetProfileByUserID(_ context.Context, userID int32, includeHash bool) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	if !includeHash {
		cp.Password = ""
	}
	return &cp, nil
}

func (s *Store) UniquenessCheck(_ context.Context, nickname, email string) (*store.UniquenessConflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nickname != "" {
		for _, p := range s.profiles {
			if p.Nickname == nickname {
				return &store.UniquenessConflict{NicknameConflict: true, OwningID: p.UserID}, nil
			}
		}
	}
	if email != "" {
		for _, p := range s.profiles {
			if p.Email == email {
				return &store.UniquenessConflict{NicknameConflict: false, OwningID: p.UserID}, nil
			}
		}
	}
	if nickname != "" {
		for _, pr := range s.pendingRegs {
			if pr.Nickname == nickname {
				return &store.UniquenessConflict{NicknameConflict: true, OwningID: pr.ID}, nil
			}
		}
	}
	if email != "" {
		for _, pr := range s.pendingRegs {
			if pr.Email == email {
				return &store.UniquenessConflict{NicknameConflict: false, OwningID: pr.ID}, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) CreateProfile(_ context.Context, in store.NewProfile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProfileID++
	now := time.Now()
	p := &domain.Profile{
		UserID:    s.nextProfileID,
		Nickname:  in.Nickname,
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.profiles[p.UserID] = p
	s.sessions[p.UserID] = &domain.Session{UserID: p.UserID}
	cp := *p
	return &cp, nil
}

func (s *Store) ModifyProfile(_ context.Context, userID int32, patch store.ProfilePatch) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	if patch.Nickname != nil {
		p.Nickname = *patch.Nickname
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Password != nil {
		p.Password = *patch.Password
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Avatar != nil {
		p.Avatar = *patch.Avatar
	}
	if patch.Descript != nil {
		p.Descript = *patch.Descript
	}
	if patch.Theme != nil {
		p.Theme = *patch.Theme
	}
	if patch.Locale != nil {
		p.Locale = *patch.Locale
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *Store) DeleteProfile(_ context.Context, userID int32) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	delete(s.profiles, userID)
	delete(s.sessions, userID)
	cp := *p
	return &cp, nil
}

func (s *Store) CreatePendingRegistration(_ context.Context, nickname, email, password string, finalDate time.Time) (*domain.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPendingRID++
	pr := &domain.PendingRegistration{
		ID:        s.nextPendingRID,
		Nickname:  nickname,
		Email:     email,
		Password:  password,
		FinalDate: finalDate,
	}
	s.pendingRegs[pr.ID] = pr
	cp := *pr
	return &cp, nil
}

func (s *Store) FindPendingRegistrationByID(_ context.Context, id int32) (*domain.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.pendingRegs[id]
	if !ok {
		return nil, nil
	}
	return clone(*pr), nil
}

func (s *Store) DeletePendingRegistration(_ context.Context, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingRegs, id)
	return nil
}

func (s *Store) DeletePendingRegistrationsBefore(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, pr := range s.pendingRegs {
		if pr.FinalDate.Before(now) {
			delete(s.pendingRegs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertPendingRecovery(_ context.Context, userID int32, finalDate time.Time) (*domain.PendingRecovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pc := range s.pendingRecs {
		if pc.UserID == userID {
			pc.FinalDate = finalDate
			return clone(*pc), nil
		}
	}
	s.nextPendingCID++
	pc := &domain.PendingRecovery{ID: s.nextPendingCID, UserID: userID, FinalDate: finalDate}
	s.pendingRecs[pc.ID] = pc
	return clone(*pc), nil
}

func (s *Store) FindPendingRecoveryByID(_ context.Context, id int32) (*domain.PendingRecovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.pendingRecs[id]
	if !ok {
		return nil, nil
	}
	return clone(*pc), nil
}

func (s *Store) DeletePendingRecovery(_ context.Context, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingRecs, id)
	return nil
}

func (s *Store) DeletePendingRecoveriesBefore(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, pc := range s.pendingRecs {
		if pc.FinalDate.Before(now) {
			delete(s.pendingRecs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ModifySession(_ context.Context, userID int32, numToken *int32) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	sess.NumToken = numToken
	cp := *sess
	return &cp, nil
}

func (s *Store) FindSessionByUserID(_ context.Context, userID int32) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) CreateStream(_ context.Context, stream domain.Stream, tags []string) (*domain.Stream, []domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStreamID++
	stream.ID = s.nextStreamID
	now := time.Now()
	stream.CreatedAt, stream.UpdatedAt = now, now
	s.streams[stream.ID] = &stream
	s.tags[stream.ID] = makeTags(&s.nextTagID, stream.ID, tags)
	return clone(stream), append([]domain.Tag(nil), s.tags[stream.ID]...), nil
}

func (s *Store) ModifyStream(_ context.Context, id int32, ownerID *int32, patch store.StreamPatch, tags []string) (*domain.Stream, []domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok || (ownerID != nil && st.UserID != *ownerID) {
		return nil, nil, nil
	}
	if patch.Title != nil {
		st.Title = *patch.Title
	}
	if patch.Descript != nil {
		st.Descript = *patch.Descript
	}
	if patch.Logo != nil {
		st.Logo = *patch.Logo
	}
	if patch.Source != nil {
		st.Source = *patch.Source
	}
	if patch.StartTime != nil {
		st.StartTime = *patch.StartTime
	}
	if patch.State != nil {
		st.State = *patch.State
	}
	if patch.Started != nil {
		st.Started = *patch.Started
	}
	if patch.Stopped != nil {
		st.Stopped = *patch.Stopped
	}
	if patch.Live != nil {
		st.Live = *patch.Live
	}
	st.UpdatedAt = time.Now()
	if tags != nil {
		s.tags[id] = makeTags(&s.nextTagID, id, tags)
	}
	return clone(*st), append([]domain.Tag(nil), s.tags[id]...), nil
}

func (s *Store) GetStreamByID(_ context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok || (ownerID != nil && st.UserID != *ownerID) {
		return nil, nil, nil
	}
	return clone(*st), append([]domain.Tag(nil), s.tags[id]...), nil
}

func (s *Store) GetStreamLogoByID(_ context.Context, id int32) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok {
		return nil, nil
	}
	return st.Logo, nil
}

func (s *Store) DeleteStream(_ context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok || (ownerID != nil && st.UserID != *ownerID) {
		return nil, nil, nil
	}
	tags := s.tags[id]
	delete(s.streams, id)
	delete(s.tags, id)
	return clone(*st), append([]domain.Tag(nil), tags...), nil
}

func (s *Store) FindActiveStreamByUserID(_ context.Context, userID int32, exceptID *int32) (*store.ActiveStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		if st.UserID != userID || !st.Live {
			continue
		}
		if exceptID != nil && st.ID == *exceptID {
			continue
		}
		return &store.ActiveStream{ID: st.ID, Title: st.Title}, nil
	}
	return nil, nil
}

func makeTags(counter *int32, streamID int32, names []string) []domain.Tag {
	out := make([]domain.Tag, 0, len(names))
	for _, n := range names {
		*counter++
		out = append(out, domain.Tag{ID: *counter, StreamID: streamID, Name: n})
	}
	return out
}
