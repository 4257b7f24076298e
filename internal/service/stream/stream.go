// Package stream implements StreamMutator: stream creation, editing, the
// toggle-state FSM, and deletion, mirroring the profile upload pattern with
// a logo swap in place of an avatar swap.
package stream

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/audit"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/filestore"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/validate"
)

// allowedTransitions enumerates the legal toggle-state moves. A transition
// not present here (including self-transitions) fails with
// invalid_stream_state.
var allowedTransitions = map[domain.StreamState]map[domain.StreamState]bool{
	domain.StreamWaiting:   {domain.StreamPreparing: true},
	domain.StreamPreparing: {domain.StreamStarted: true, domain.StreamStopped: true},
	domain.StreamStarted:   {domain.StreamPaused: true, domain.StreamStopped: true},
	domain.StreamPaused:    {domain.StreamStarted: true, domain.StreamStopped: true},
	domain.StreamStopped:   {},
}

// LogoUpload mirrors profile.AvatarUpload for the stream logo part.
type LogoUpload struct {
	Present     bool
	Size        int64
	ContentType string
	Ext         string
	Reader      io.Reader
}

// CreateInput is the full set of fields post_stream accepts.
type CreateInput struct {
	Title     string
	Descript  *string
	StartTime time.Time
	Source    *string
	Tags      []string
	Logo      LogoUpload
}

// UpdateInput is the sparse set of fields put_stream accepts.
type UpdateInput struct {
	Title     *string
	Descript  *string
	StartTime *time.Time
	Source    *string
	Tags      []string
	Logo      LogoUpload
}

// Config bounds logo uploads.
type Config struct {
	MaxLogoSize int64
	ValidMimes  []string
	TargetExt   string
	MaxW, MaxH  int
}

// Service implements StreamMutator.
type Service struct {
	store store.Store
	logos *filestore.FileStore
	pool  *exec.Pool
	cfg   Config
}

// New builds a stream Service.
func New(st store.Store, logos *filestore.FileStore, pool *exec.Pool, cfg Config) *Service {
	return &Service{store: st, logos: logos, pool: pool, cfg: cfg}
}

// Create builds a new stream owned by callerID.
func (s *Service) Create(ctx context.Context, callerID int32, in CreateInput) (*domain.Stream, []domain.Tag, error) {
	var c validate.Collector
	c.RequiredRange("title", in.Title, 2, 255)
	c.OptionalRange("descript", in.Descript, 2, 2048)
	c.OptionalRange("source", in.Source, 2, 255)
	c.StartTime("starttime", in.StartTime)
	c.Tags("tags", in.Tags)
	if err := c.Err(); err != nil {
		return nil, nil, err
	}

	newLogoDisk, newLogoAlias, err := s.persistLogo(callerID, in.Logo)
	if err != nil {
		return nil, nil, err
	}

	stream := domain.Stream{
		UserID:    callerID,
		Title:     in.Title,
		Descript:  in.Descript,
		StartTime: in.StartTime,
		Source:    in.Source,
		State:     domain.StreamWaiting,
	}
	if newLogoAlias != "" {
		stream.Logo = &newLogoAlias
	}

	var created *domain.Stream
	var tags []domain.Tag
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		st, tg, err := s.store.CreateStream(ctx, stream, in.Tags)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		created, tags = st, tg
		return nil
	})
	if err != nil {
		if newLogoDisk != "" {
			_ = os.Remove(newLogoDisk)
		}
		return nil, nil, err
	}

	audit.Log(ctx, audit.ActionStreamCreate, callerID, "stream created")
	return created, tags, nil
}

// LookupForUpdate loads the stream a subsequent Update/ToggleState call will
// act on, scoped by ownerID unless nil (Admin override).
func (s *Service) LookupForUpdate(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	var current *domain.Stream
	var tags []domain.Tag
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		st, tg, err := s.store.GetStreamByID(ctx, id, ownerID)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		current, tags = st, tg
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return current, tags, nil
}

// Update applies in's sparse patch to the stream identified by id. ownerID
// restricts the match unless the caller is Admin, in which case the handler
// passes nil.
func (s *Service) Update(ctx context.Context, id int32, ownerID *int32, current *domain.Stream, in UpdateInput) (*domain.Stream, []domain.Tag, error) {
	var c validate.Collector
	if in.Title != nil {
		c.RequiredRange("title", *in.Title, 2, 255)
	}
	c.OptionalRange("descript", in.Descript, 2, 2048)
	c.OptionalRange("source", in.Source, 2, 255)
	if in.StartTime != nil {
		c.StartTime("starttime", *in.StartTime)
	}
	if in.Tags != nil {
		c.Tags("tags", in.Tags)
	}
	if err := c.Err(); err != nil {
		return nil, nil, err
	}

	patch := store.StreamPatch{}
	if in.Title != nil {
		patch.Title = in.Title
	}
	if in.Descript != nil {
		patch.Descript = asNullable(in.Descript)
	}
	if in.Source != nil {
		patch.Source = asNullable(in.Source)
	}
	if in.StartTime != nil {
		patch.StartTime = in.StartTime
	}

	var newLogoDisk string
	var oldLogoToRemove *string

	switch {
	case in.Logo.Present && in.Logo.Size > 0:
		disk, alias, err := s.persistLogo(current.UserID, in.Logo)
		if err != nil {
			return nil, nil, err
		}
		newLogoDisk = disk
		patch.Logo = asNullable(&alias)
		if current.Logo != nil {
			oldLogoToRemove = current.Logo
		}
	case in.Logo.Present && in.Logo.Size == 0:
		patch.Logo = asNullable[string](nil)
		if current.Logo != nil {
			oldLogoToRemove = current.Logo
		}
	}

	var updated *domain.Stream
	var tags []domain.Tag
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		st, tg, err := s.store.ModifyStream(ctx, id, ownerID, patch, in.Tags)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		updated, tags = st, tg
		return nil
	})
	if err != nil {
		if newLogoDisk != "" {
			_ = os.Remove(newLogoDisk)
		}
		return nil, nil, err
	}
	if updated == nil {
		if newLogoDisk != "" {
			_ = os.Remove(newLogoDisk)
		}
		return nil, nil, nil
	}

	if oldLogoToRemove != nil {
		s.logos.Remove(*oldLogoToRemove)
	}

	audit.Log(ctx, audit.ActionStreamUpdate, current.UserID, "stream updated")
	return updated, tags, nil
}

// ToggleState drives the fixed state-transition table, guarding against a
// second simultaneous live stream for the owner.
func (s *Service) ToggleState(ctx context.Context, id int32, ownerID *int32, current *domain.Stream, newState domain.StreamState) (*domain.Stream, []domain.Tag, error) {
	allowed := allowedTransitions[current.State]
	if !allowed[newState] {
		return nil, nil, apperror.New(apperror.KindNotAcceptable, apperror.CodeInvalidStreamState, "illegal stream state transition").
			WithParams(map[string]any{"oldState": current.State, "newState": newState})
	}

	if newState == domain.StreamPreparing {
		var active *store.ActiveStream
		err := s.pool.Run(ctx, func(ctx context.Context) error {
			a, err := s.store.FindActiveStreamByUserID(ctx, current.UserID, &id)
			if err != nil {
				return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
			}
			active = a
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		if active != nil {
			return nil, nil, apperror.New(apperror.KindConflict, apperror.CodeExistIsActiveStream, "another stream is already live").
				WithParams(map[string]any{"id": active.ID, "title": active.Title})
		}
	}

	patch := store.StreamPatch{State: &newState}
	live := newState.IsLive()
	patch.Live = &live

	now := time.Now()
	switch newState {
	case domain.StreamStarted:
		patch.Started = asNullable(&now)
	case domain.StreamStopped:
		patch.Stopped = asNullable(&now)
	}

	var updated *domain.Stream
	var tags []domain.Tag
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		st, tg, err := s.store.ModifyStream(ctx, id, ownerID, patch, nil)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		updated, tags = st, tg
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if updated == nil {
		return nil, nil, nil
	}

	audit.Log(ctx, audit.ActionStreamToggleState, current.UserID, "stream state toggled to "+string(newState))
	return updated, tags, nil
}

// Delete removes the stream identified by id, scoped by ownerID unless the
// caller is Admin (ownerID nil), removing the logo file afterward.
func (s *Service) Delete(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, error) {
	var deleted *domain.Stream
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		st, _, err := s.store.DeleteStream(ctx, id, ownerID)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		deleted = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, nil
	}
	if deleted.Logo != nil {
		s.logos.Remove(*deleted.Logo)
	}
	audit.Log(ctx, audit.ActionStreamDelete, deleted.UserID, "stream deleted")
	return deleted, nil
}

func (s *Service) persistLogo(userID int32, in LogoUpload) (diskPath, aliasPath string, err error) {
	if !in.Present || in.Size <= 0 {
		return "", "", nil
	}
	if in.Size > s.cfg.MaxLogoSize {
		return "", "", apperror.New(apperror.KindPayloadTooLarge, apperror.CodeInvalidFileSize, "logo exceeds maximum size").
			WithParams(map[string]any{"actual": in.Size, "max": s.cfg.MaxLogoSize})
	}
	if !mimeAllowed(in.ContentType, s.cfg.ValidMimes) {
		return "", "", apperror.New(apperror.KindUnsupportedMedia, apperror.CodeInvalidFileType, "logo mime type rejected").
			WithParams(map[string]any{"actual": in.ContentType, "valid": s.cfg.ValidMimes})
	}

	alias, disk := s.logos.NewAssetPath(userID, in.Ext)
	tmp, err := writeTemp(disk, in.Reader)
	if err != nil {
		return "", "", apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
	}
	if err := s.logos.Persist(tmp, disk); err != nil {
		_ = os.Remove(tmp)
		return "", "", err
	}

	final, err := s.logos.Convert(disk, s.cfg.TargetExt, s.cfg.MaxW, s.cfg.MaxH)
	if err != nil {
		_ = os.Remove(disk)
		return "", "", err
	}
	return final, alias, nil
}

func mimeAllowed(mime string, valid []string) bool {
	for _, v := range valid {
		if v == mime {
			return true
		}
	}
	return false
}

func asNullable[T any](v *T) **T {
	return &v
}

func writeTemp(finalPath string, r io.Reader) (tempPath string, err error) {
	idx := strings.LastIndex(finalPath, "/")
	dir := finalPath
	if idx >= 0 {
		dir = finalPath[:idx]
	}
	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
