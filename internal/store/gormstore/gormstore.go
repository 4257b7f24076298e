package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/store"
)

// Store implements store.Store backed by a GORM connection.
type Store struct {
	db *gorm.DB
}

// New wraps db as a store.Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindProfileByNicknameOrEmail(ctx context.Context, nickname, email string, includeHash bool) (*domain.Profile, error) {
	var m ProfileModel
	q := s.db.WithContext(ctx)
	switch {
	case nickname != "" && email != "":
		q = q.Where("nickname = ? OR email = ?", nickname, email)
	case nickname != "":
		q = q.Where("nickname = ?", nickname)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return nil, nil
	}
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(includeHash), nil
}

func (s *Store) GetProfileByUserID(ctx context.Context, userID int32, includeHash bool) (*domain.Profile, error) {
	var m ProfileModel
	if err := s.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(includeHash), nil
}

// UniquenessCheck walks Profile then PendingRegistration, nickname before
// email within each, and returns the first row that collides.
func (s *Store) UniquenessCheck(ctx context.Context, nickname, email string) (*store.UniquenessConflict, error) {
	var p ProfileModel
	if nickname != "" {
		err := s.db.WithContext(ctx).Select("user_id").Where("nickname = ?", nickname).First(&p).Error
		if err == nil {
			return &store.UniquenessConflict{NicknameConflict: true, OwningID: p.UserID}, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if email != "" {
		err := s.db.WithContext(ctx).Select("user_id").Where("email = ?", email).First(&p).Error
		if err == nil {
			return &store.UniquenessConflict{NicknameConflict: false, OwningID: p.UserID}, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var pr PendingRegistrationModel
	if nickname != "" {
		err := s.db.WithContext(ctx).Select("id").Where("nickname = ?", nickname).First(&pr).Error
		if err == nil {
			return &store.UniquenessConflict{NicknameConflict: true, OwningID: pr.ID}, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if email != "" {
		err := s.db.WithContext(ctx).Select("id").Where("email = ?", email).First(&pr).Error
		if err == nil {
			return &store.UniquenessConflict{NicknameConflict: false, OwningID: pr.ID}, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// CreateProfile creates both the Profile row and its Session(nil) row
// atomically.
func (s *Store) CreateProfile(ctx context.Context, in store.NewProfile) (*domain.Profile, error) {
	m := &ProfileModel{
		Nickname: in.Nickname,
		Email:    in.Email,
		Password: in.Password,
		Role:     string(in.Role),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Create(&SessionModel{UserID: m.UserID}).Error
	})
	if err != nil {
		return nil, translateUniqueViolation(err)
	}
	return m.toDomain(true), nil
}

func (s *Store) ModifyProfile(ctx context.Context, userID int32, patch store.ProfilePatch) (*domain.Profile, error) {
	updates := map[string]interface{}{}
	if patch.Nickname != nil {
		updates["nickname"] = *patch.Nickname
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Password != nil {
		updates["password"] = *patch.Password
	}
	if patch.Role != nil {
		updates["role"] = string(*patch.Role)
	}
	if patch.Avatar != nil {
		updates["avatar"] = *patch.Avatar
	}
	if patch.Descript != nil {
		updates["descript"] = *patch.Descript
	}
	if patch.Theme != nil {
		updates["theme"] = *patch.Theme
	}
	if patch.Locale != nil {
		updates["locale"] = *patch.Locale
	}
	if len(updates) == 0 {
		return s.GetProfileByUserID(ctx, userID, true)
	}

	result := s.db.WithContext(ctx).Model(&ProfileModel{}).Where("user_id = ?", userID).Updates(updates)
	if result.Error != nil {
		return nil, translateUniqueViolation(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetProfileByUserID(ctx, userID, true)
}

func (s *Store) DeleteProfile(ctx context.Context, userID int32) (*domain.Profile, error) {
	var m ProfileModel
	var deleted *domain.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		deleted = m.toDomain(false)
		if err := tx.Delete(&SessionModel{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		return tx.Delete(&ProfileModel{}, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Store) CreatePendingRegistration(ctx context.Context, nickname, email, password string, finalDate time.Time) (*domain.PendingRegistration, error) {
	m := &PendingRegistrationModel{Nickname: nickname, Email: email, Password: password, FinalDate: finalDate}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, translateUniqueViolation(err)
	}
	return m.toDomain(), nil
}

func (s *Store) FindPendingRegistrationByID(ctx context.Context, id int32) (*domain.PendingRegistration, error) {
	var m PendingRegistrationModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (s *Store) DeletePendingRegistration(ctx context.Context, id int32) error {
	return s.db.WithContext(ctx).Delete(&PendingRegistrationModel{}, "id = ?", id).Error
}

func (s *Store) DeletePendingRegistrationsBefore(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("final_date < ?", now).Delete(&PendingRegistrationModel{})
	return result.RowsAffected, result.Error
}

func (s *Store) UpsertPendingRecovery(ctx context.Context, userID int32, finalDate time.Time) (*domain.PendingRecovery, error) {
	var m PendingRecoveryModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&m).Error
		switch {
		case err == nil:
			m.FinalDate = finalDate
			return tx.Save(&m).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = PendingRecoveryModel{UserID: userID, FinalDate: finalDate}
			return tx.Create(&m).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (s *Store) FindPendingRecoveryByID(ctx context.Context, id int32) (*domain.PendingRecovery, error) {
	var m PendingRecoveryModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (s *Store) DeletePendingRecovery(ctx context.Context, id int32) error {
	return s.db.WithContext(ctx).Delete(&PendingRecoveryModel{}, "id = ?", id).Error
}

func (s *Store) DeletePendingRecoveriesBefore(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("final_date < ?", now).Delete(&PendingRecoveryModel{})
	return result.RowsAffected, result.Error
}

func (s *Store) ModifySession(ctx context.Context, userID int32, numToken *int32) (*domain.Session, error) {
	result := s.db.WithContext(ctx).Model(&SessionModel{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{"num_token": numToken})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &domain.Session{UserID: userID, NumToken: numToken}, nil
}

func (s *Store) FindSessionByUserID(ctx context.Context, userID int32) (*domain.Session, error) {
	var m SessionModel
	if err := s.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (s *Store) CreateStream(ctx context.Context, stream domain.Stream, tags []string) (*domain.Stream, []domain.Tag, error) {
	m := &StreamModel{
		UserID:    stream.UserID,
		Title:     stream.Title,
		Descript:  stream.Descript,
		Logo:      stream.Logo,
		StartTime: stream.StartTime,
		Live:      stream.Live,
		State:     string(stream.State),
		Source:    stream.Source,
	}
	var tagModels []TagModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		tagModels = buildTagModels(m.ID, tags)
		if len(tagModels) > 0 {
			if err := tx.Create(&tagModels).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return m.toDomain(), toTagDomains(tagModels), nil
}

// ModifyStream applies patch and, when tags is non-nil, replaces the tag set
// wholesale (delete-all then re-insert) inside the same transaction.
func (s *Store) ModifyStream(ctx context.Context, id int32, ownerID *int32, patch store.StreamPatch, tags []string) (*domain.Stream, []domain.Tag, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Descript != nil {
		updates["descript"] = *patch.Descript
	}
	if patch.Logo != nil {
		updates["logo"] = *patch.Logo
	}
	if patch.Source != nil {
		updates["source"] = *patch.Source
	}
	if patch.StartTime != nil {
		updates["start_time"] = *patch.StartTime
	}
	if patch.State != nil {
		updates["state"] = string(*patch.State)
	}
	if patch.Started != nil {
		updates["started"] = *patch.Started
	}
	if patch.Stopped != nil {
		updates["stopped"] = *patch.Stopped
	}
	if patch.Live != nil {
		updates["live"] = *patch.Live
	}

	var m StreamModel
	var tagModels []TagModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if ownerID != nil {
			q = q.Where("user_id = ?", *ownerID)
		}

		if len(updates) > 0 {
			result := q.Model(&StreamModel{}).Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return store.ErrNotFound
			}
		} else {
			var exists StreamModel
			eq := tx.Where("id = ?", id)
			if ownerID != nil {
				eq = eq.Where("user_id = ?", *ownerID)
			}
			if err := eq.First(&exists).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return store.ErrNotFound
				}
				return err
			}
		}

		if tags != nil {
			if err := tx.Where("stream_id = ?", id).Delete(&TagModel{}).Error; err != nil {
				return err
			}
			tagModels = buildTagModels(id, tags)
			if len(tagModels) > 0 {
				if err := tx.Create(&tagModels).Error; err != nil {
					return err
				}
			}
		} else if err := tx.Where("stream_id = ?", id).Find(&tagModels).Error; err != nil {
			return err
		}

		return tx.First(&m, "id = ?", id).Error
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return m.toDomain(), toTagDomains(tagModels), nil
}

// GetStreamByID loads a stream and its tags, scoped by ownerID unless nil.
func (s *Store) GetStreamByID(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	var m StreamModel
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if ownerID != nil {
		q = q.Where("user_id = ?", *ownerID)
	}
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var tagModels []TagModel
	if err := s.db.WithContext(ctx).Where("stream_id = ?", id).Find(&tagModels).Error; err != nil {
		return nil, nil, err
	}

	return m.toDomain(), toTagDomains(tagModels), nil
}

func (s *Store) GetStreamLogoByID(ctx context.Context, id int32) (*string, error) {
	var m StreamModel
	if err := s.db.WithContext(ctx).Select("logo").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.Logo, nil
}

func (s *Store) DeleteStream(ctx context.Context, id int32, ownerID *int32) (*domain.Stream, []domain.Tag, error) {
	var m StreamModel
	var tagModels []TagModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if ownerID != nil {
			q = q.Where("user_id = ?", *ownerID)
		}
		if err := q.First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		if err := tx.Where("stream_id = ?", id).Find(&tagModels).Error; err != nil {
			return err
		}
		if err := tx.Where("stream_id = ?", id).Delete(&TagModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&StreamModel{}, "id = ?", id).Error
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return m.toDomain(), toTagDomains(tagModels), nil
}

func (s *Store) FindActiveStreamByUserID(ctx context.Context, userID int32, exceptID *int32) (*store.ActiveStream, error) {
	q := s.db.WithContext(ctx).Where("user_id = ? AND live = ?", userID, true)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	var m StreamModel
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &store.ActiveStream{ID: m.ID, Title: m.Title}, nil
}

func buildTagModels(streamID int32, tags []string) []TagModel {
	out := make([]TagModel, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagModel{StreamID: streamID, Name: t})
	}
	return out
}

func toTagDomains(models []TagModel) []domain.Tag {
	out := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out
}

// translateUniqueViolation turns a driver-specific unique constraint error
// into store.ErrNotFound's sibling: callers distinguish which column
// collided via UniquenessCheck before mutating, so by the time a write
// trips a constraint it is treated as a generic conflict.
func translateUniqueViolation(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "Duplicate entry") {
		return errors.Join(err, errConflict)
	}
	return err
}

var errConflict = errors.New("store: unique constraint violation")
