// Package store declares the storage contract the identity core builds on.
// Implementations are synchronous against the database; callers are
// responsible for offloading calls through a blocking executor so request
// goroutines never block on I/O directly.
package store

import (
	"context"
	"time"

	"github.com/lumicast/core/internal/domain"
)

// ProfilePatch is a sparse set of editable profile fields. A nil pointer
// leaves the column untouched; a non-nil pointer to the zero value clears it.
type ProfilePatch struct {
	Nickname *string
	Email    *string
	Password *string
	Role     *domain.Role
	Avatar   **string
	Descript **string
	Theme    **string
	Locale   **string
}

// NewProfile is the input to CreateProfile.
type NewProfile struct {
	Nickname string
	Email    string
	Password string
	Role     domain.Role
}

// UniquenessConflict reports the first colliding field across Profile and
// PendingRegistration. Nickname is checked before Email.
type UniquenessConflict struct {
	NicknameConflict bool
	OwningID         int32
}

// StreamPatch is a sparse set of editable stream fields.
type StreamPatch struct {
	Title     *string
	Descript  **string
	Logo      **string
	Source    **string
	StartTime *time.Time
	State     *domain.StreamState
	Started   **time.Time
	Stopped   **time.Time
	Live      *bool
}

// Store is the full persistence surface of the identity core.
type Store interface {
	// Profile side.
	FindProfileByNicknameOrEmail(ctx context.Context, nickname, email string, includeHash bool) (*domain.Profile, error)
	GetProfileByUserID(ctx context.Context, userID int32, includeHash bool) (*domain.Profile, error)
	UniquenessCheck(ctx context.Context, nickname, email string) (*UniquenessConflict, error)
	CreateProfile(ctx context.Context, in NewProfile) (*domain.Profile, error)
	ModifyProfile(ctx context.Context, userID int32, patch ProfilePatch) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, userID int32) (*domain.Profile, error)

	// Pending registration side.
	CreatePendingRegistration(ctx context.Context, nickname, email, password string, finalDate time.Time) (*domain.PendingRegistration, error)
	FindPendingRegistrationByID(ctx context.Context, id int32) (*domain.PendingRegistration, error)
	DeletePendingRegistration(ctx context.Context, id int32) error
	DeletePendingRegistrationsBefore(ctx context.Context, now time.Time) (int64, error)

	// Pending recovery side.
	UpsertPendingRecovery(ctx context.Context, userID int32, finalDate time.Time) (*domain.PendingRecovery, error)
	FindPendingRecoveryByID(ctx context.Context, id int32) (*domain.PendingRecovery, error)
	DeletePendingRecovery(ctx context.Context, id int32) error
	DeletePendingRecoveriesBefore(ctx context.Context, now time.Time) (int64, error)

	// Session side.
	ModifySession(ctx context.Context, userID int32, numToken *int32) (*domain.Session, error)
	FindSessionByUserID(ctx context.Context, userID int32) (*domain.Session, error)

	// Stream side.
	CreateStream(ctx context.Context, stream domain.Stream, tags []string) (*domain.Stream, []domain.Tag, error)
	GetStreamByID(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error)
	ModifyStream(ctx context.Context, id int32, ownerID *int32, patch StreamPatch, tags []string) (*domain.Stream, []domain.Tag, error)
	GetStreamLogoByID(ctx context.Context, id int32) (*string, error)
	DeleteStream(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error)
	FindActiveStreamByUserID(ctx context.Context, userID int32, exceptID *int32) (*ActiveStream, error)
}

// ActiveStream is the minimal projection needed to reject a second
// simultaneous live stream for a user.
type ActiveStream struct {
	ID    int32
	Title string
}

// ErrNotFound marks a single-row mutation that matched no row inside an
// implementation's transaction; Store methods themselves report a missing
// row as a nil result with a nil error, never as ErrNotFound.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: no matching row" }
