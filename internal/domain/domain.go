// Package domain holds the pure Go entities of the identity core, free of
// persistence or transport concerns.
package domain

import "time"

// Role is a profile's access level.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Profile is the stable identity record.
type Profile struct {
	UserID    int32     `json:"id"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // hash; blanked by Store when include_hash=false
	Role      Role      `json:"role"`
	Avatar    *string   `json:"avatar"`
	Descript  *string   `json:"descript"`
	Theme     *string   `json:"theme"`
	Locale    *string   `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session binds a profile to the nonce embedded in its issued tokens.
// NumToken is nil when the profile is logged out.
type Session struct {
	UserID   int32  `json:"user_id"`
	NumToken *int32 `json:"num_token"`
}

// PendingRegistration holds a prospective account until email ownership is
// proved.
type PendingRegistration struct {
	ID        int32     `json:"id"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // already hashed
	FinalDate time.Time `json:"final_date"`
}

// PendingRecovery holds an open password-reset window. At most one row
// exists per UserID.
type PendingRecovery struct {
	ID        int32     `json:"id"`
	UserID    int32     `json:"user_id"`
	FinalDate time.Time `json:"final_date"`
}

// StreamState is the lifecycle state of a Stream.
type StreamState string

const (
	StreamWaiting   StreamState = "Waiting"
	StreamPreparing StreamState = "Preparing"
	StreamStarted   StreamState = "Started"
	StreamPaused    StreamState = "Paused"
	StreamStopped   StreamState = "Stopped"
)

// IsLive reports whether a stream in this state counts as "live" (at most
// one per user, per spec).
func (s StreamState) IsLive() bool {
	return s == StreamPreparing || s == StreamStarted || s == StreamPaused
}

// Stream is a user-owned broadcast resource.
type Stream struct {
	ID        int32       `json:"id"`
	UserID    int32       `json:"user_id"`
	Title     string      `json:"title"`
	Descript  *string     `json:"descript"`
	Logo      *string     `json:"logo"`
	StartTime time.Time   `json:"starttime"`
	Live      bool        `json:"live"`
	State     StreamState `json:"state"`
	Started   *time.Time  `json:"started"`
	Stopped   *time.Time  `json:"stopped"`
	Source    *string     `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Tag is a single stream tag.
type Tag struct {
	ID       int32  `json:"id"`
	StreamID int32  `json:"stream_id"`
	Name     string `json:"name"`
}
