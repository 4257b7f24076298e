// Package gormstore implements store.Store on top of GORM, following the
// model/domain translation split used throughout the rest of the corpus.
package gormstore

import (
	"time"

	"github.com/lumicast/core/internal/domain"
)

// ProfileModel is the GORM model for the profiles table.
type ProfileModel struct {
	UserID    int32 `gorm:"primaryKey;autoIncrement"`
	Nickname  string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email     string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string `gorm:"type:varchar(255);not null"`
	Role      string `gorm:"type:varchar(16);not null;default:User"`
	Avatar    *string `gorm:"type:text"`
	Descript  *string `gorm:"type:text"`
	Theme     *string `gorm:"type:varchar(32)"`
	Locale    *string `gorm:"type:varchar(16)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ProfileModel) TableName() string { return "profiles" }

func (m *ProfileModel) toDomain(includeHash bool) *domain.Profile {
	p := &domain.Profile{
		UserID:    m.UserID,
		Nickname:  m.Nickname,
		Email:     m.Email,
		Password:  m.Password,
		Role:      domain.Role(m.Role),
		Avatar:    m.Avatar,
		Descript:  m.Descript,
		Theme:     m.Theme,
		Locale:    m.Locale,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if !includeHash {
		p.Password = ""
	}
	return p
}

// SessionModel is the GORM model for the sessions table, one row per profile.
type SessionModel struct {
	UserID   int32  `gorm:"primaryKey"`
	NumToken *int32 `gorm:"column:num_token"`
}

func (SessionModel) TableName() string { return "sessions" }

func (m *SessionModel) toDomain() *domain.Session {
	return &domain.Session{UserID: m.UserID, NumToken: m.NumToken}
}

// PendingRegistrationModel is the GORM model for the pending_registrations table.
type PendingRegistrationModel struct {
	ID        int32 `gorm:"primaryKey;autoIncrement"`
	Nickname  string `gorm:"type:varchar(64);not null"`
	Email     string `gorm:"type:varchar(255);not null"`
	Password  string `gorm:"type:varchar(255);not null"`
	FinalDate time.Time `gorm:"not null;index"`
}

func (PendingRegistrationModel) TableName() string { return "pending_registrations" }

func (m *PendingRegistrationModel) toDomain() *domain.PendingRegistration {
	return &domain.PendingRegistration{
		ID:        m.ID,
		Nickname:  m.Nickname,
		Email:     m.Email,
		Password:  m.Password,
		FinalDate: m.FinalDate,
	}
}

// PendingRecoveryModel is the GORM model for the pending_recoveries table.
// UserID carries a unique index: at most one open recovery per profile.
type PendingRecoveryModel struct {
	ID        int32 `gorm:"primaryKey;autoIncrement"`
	UserID    int32 `gorm:"uniqueIndex;not null"`
	FinalDate time.Time `gorm:"not null;index"`
}

func (PendingRecoveryModel) TableName() string { return "pending_recoveries" }

func (m *PendingRecoveryModel) toDomain() *domain.PendingRecovery {
	return &domain.PendingRecovery{ID: m.ID, UserID: m.UserID, FinalDate: m.FinalDate}
}

// StreamModel is the GORM model for the streams table.
type StreamModel struct {
	ID        int32 `gorm:"primaryKey;autoIncrement"`
	UserID    int32 `gorm:"index;not null"`
	Title     string `gorm:"type:varchar(255);not null"`
	Descript  *string `gorm:"type:text"`
	Logo      *string `gorm:"type:text"`
	StartTime time.Time `gorm:"not null"`
	Live      bool `gorm:"not null;default:false"`
	State     string `gorm:"type:varchar(16);not null;default:Waiting"`
	Started   *time.Time
	Stopped   *time.Time
	Source    *string `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (StreamModel) TableName() string { return "streams" }

func (m *StreamModel) toDomain() *domain.Stream {
	return &domain.Stream{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Descript:  m.Descript,
		Logo:      m.Logo,
		StartTime: m.StartTime,
		Live:      m.Live,
		State:     domain.StreamState(m.State),
		Started:   m.Started,
		Stopped:   m.Stopped,
		Source:    m.Source,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// TagModel is the GORM model for the stream_tags join table.
type TagModel struct {
	ID       int32 `gorm:"primaryKey;autoIncrement"`
	StreamID int32 `gorm:"index;not null"`
	Name     string `gorm:"type:varchar(64);not null"`
}

func (TagModel) TableName() string { return "stream_tags" }

func (m *TagModel) toDomain() domain.Tag {
	return domain.Tag{ID: m.ID, StreamID: m.StreamID, Name: m.Name}
}

// AllModels lists every model AutoMigrate must know about.
var AllModels = []interface{}{
	&ProfileModel{},
	&SessionModel{},
	&PendingRegistrationModel{},
	&PendingRecoveryModel{},
	&StreamModel{},
	&TagModel{},
}
