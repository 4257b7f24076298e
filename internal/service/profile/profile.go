// Package profile implements ProfileMutator: authenticated profile edits
// including the avatar swap and password-change flows.
package profile

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/audit"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/filestore"
	"github.com/lumicast/core/internal/hasher"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/validate"
)

// ValidFields lists the recognized multipart text fields for update, quoted
// back in the no_fields_to_update error's parameters.
var ValidFields = []string{"nickname", "email", "role", "descript", "theme", "locale"}

// AvatarUpload describes an optional avatarfile part of the update request.
// Present=false means the field was absent entirely. Present=true with
// Size=0 means "clear the avatar".
type AvatarUpload struct {
	Present     bool
	Size        int64
	ContentType string
	Ext         string
	Reader      io.Reader
}

// UpdateInput is the sparse set of fields a profile-update request supplied.
type UpdateInput struct {
	Nickname *string
	Email    *string
	Role     *string
	Descript *string
	Theme    *string
	Locale   *string
	Avatar   AvatarUpload
}

// Config bounds avatar uploads.
type Config struct {
	MaxAvatarSize int64
	ValidMimes    []string
	TargetExt     string
	MaxW, MaxH    int
}

// Service implements ProfileMutator.
type Service struct {
	store   store.Store
	hasher  *hasher.Hasher
	avatars *filestore.FileStore
	pool    *exec.Pool
	cfg     Config
}

// New builds a profile Service.
func New(st store.Store, h *hasher.Hasher, avatars *filestore.FileStore, pool *exec.Pool, cfg Config) *Service {
	return &Service{store: st, hasher: h, avatars: avatars, pool: pool, cfg: cfg}
}

// Update applies in's sparse patch to caller's profile.
func (s *Service) Update(ctx context.Context, caller *domain.Profile, in UpdateInput) (*domain.Profile, error) {
	var c validate.Collector
	if in.Nickname != nil {
		c.Nickname("nickname", *in.Nickname)
	}
	if in.Email != nil {
		c.Email("email", *in.Email)
	}
	c.OptionalRange("descript", in.Descript, 2, 1024)
	c.OptionalRange("theme", in.Theme, 2, 64)
	c.OptionalRange("locale", in.Locale, 2, 5)
	if in.Role != nil {
		c.OneOf("role", *in.Role, string(domain.RoleUser), string(domain.RoleAdmin))
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	nickname := caller.Nickname
	if in.Nickname != nil {
		nickname = strings.ToLower(*in.Nickname)
	}
	email := caller.Email
	if in.Email != nil {
		email = strings.ToLower(*in.Email)
	}

	if nickname != caller.Nickname || email != caller.Email {
		var uniqErr error
		err := s.pool.Run(ctx, func(ctx context.Context) error {
			checkNick, checkEmail := "", ""
			if nickname != caller.Nickname {
				checkNick = nickname
			}
			if email != caller.Email {
				checkEmail = email
			}
			conflict, err := s.store.UniquenessCheck(ctx, checkNick, checkEmail)
			if err != nil {
				return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
			}
			if conflict != nil && conflict.OwningID != caller.UserID {
				if conflict.NicknameConflict {
					uniqErr = apperror.New(apperror.KindConflict, apperror.CodeNicknameAlreadyUse, "nickname already in use")
				} else {
					uniqErr = apperror.New(apperror.KindConflict, apperror.CodeEmailAlreadyUse, "email already in use")
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if uniqErr != nil {
			return nil, uniqErr
		}
	}

	patch := store.ProfilePatch{}
	if in.Nickname != nil {
		patch.Nickname = &nickname
	}
	if in.Email != nil {
		patch.Email = &email
	}
	if in.Role != nil {
		r := domain.Role(*in.Role)
		patch.Role = &r
	}
	if in.Descript != nil {
		patch.Descript = asNullable(in.Descript)
	}
	if in.Theme != nil {
		patch.Theme = asNullable(in.Theme)
	}
	if in.Locale != nil {
		patch.Locale = asNullable(in.Locale)
	}

	var newDiskPath, newAliasPath string
	var oldAvatarToRemove *string

	switch {
	case in.Avatar.Present && in.Avatar.Size > 0:
		if in.Avatar.Size > s.cfg.MaxAvatarSize {
			return nil, apperror.New(apperror.KindPayloadTooLarge, apperror.CodeInvalidFileSize, "avatar exceeds maximum size").
				WithParams(map[string]any{"actual": in.Avatar.Size, "max": s.cfg.MaxAvatarSize})
		}
		if !mimeAllowed(in.Avatar.ContentType, s.cfg.ValidMimes) {
			return nil, apperror.New(apperror.KindUnsupportedMedia, apperror.CodeInvalidFileType, "avatar mime type rejected").
				WithParams(map[string]any{"actual": in.Avatar.ContentType, "valid": s.cfg.ValidMimes})
		}

		aliasPath, diskPath := s.avatars.NewAssetPath(caller.UserID, in.Avatar.Ext)
		tmp, err := writeTemp(diskPath, in.Avatar.Reader)
		if err != nil {
			return nil, apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
		}
		if err := s.avatars.Persist(tmp, diskPath); err != nil {
			_ = os.Remove(tmp)
			return nil, err
		}

		finalDisk, err := s.avatars.Convert(diskPath, s.cfg.TargetExt, s.cfg.MaxW, s.cfg.MaxH)
		if err != nil {
			_ = os.Remove(diskPath)
			return nil, err
		}
		newDiskPath = finalDisk
		newAliasPath = aliasPath
		patch.Avatar = asNullable(&newAliasPath)

		if caller.Avatar != nil {
			oldAvatarToRemove = caller.Avatar
		}

	case in.Avatar.Present && in.Avatar.Size == 0:
		patch.Avatar = asNullable[string](nil)
		if caller.Avatar != nil {
			oldAvatarToRemove = caller.Avatar
		}
	}

	var updated *domain.Profile
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.ModifyProfile(ctx, caller.UserID, patch)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		updated = p
		return nil
	})
	if err != nil {
		if newDiskPath != "" {
			_ = os.Remove(newDiskPath)
		}
		return nil, err
	}
	if updated == nil {
		if newDiskPath != "" {
			_ = os.Remove(newDiskPath)
		}
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeUserNotFound, "profile not found")
	}

	if oldAvatarToRemove != nil {
		s.avatars.Remove(*oldAvatarToRemove)
	}

	audit.Log(ctx, audit.ActionProfileUpdate, caller.UserID, "profile updated")
	updated.Password = ""
	return updated, nil
}

// ChangePassword verifies the current password and rotates the hash.
func (s *Service) ChangePassword(ctx context.Context, caller *domain.Profile, password, newPassword string) (*domain.Profile, error) {
	var c validate.Collector
	c.NewPassword("new_password", newPassword, password)
	if err := c.Err(); err != nil {
		return nil, err
	}

	var withHash *domain.Profile
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.GetProfileByUserID(ctx, caller.UserID, true)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		withHash = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if withHash == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeUserNotFound, "profile not found")
	}

	match, err := s.hasher.Verify(password, withHash.Password)
	if err != nil {
		return nil, apperror.New(apperror.KindConflict, apperror.CodeInvalidHash, "stored password hash is malformed")
	}
	if !match {
		return nil, apperror.New(apperror.KindUnauthorized, apperror.CodePasswordIncorrect, "password incorrect")
	}

	hash, err := s.hasher.Encode(newPassword)
	if err != nil {
		return nil, err
	}

	var updated *domain.Profile
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.ModifyProfile(ctx, caller.UserID, store.ProfilePatch{Password: &hash})
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionPasswordChange, caller.UserID, "password changed")
	updated.Password = ""
	return updated, nil
}

// Delete removes targetUserID's profile. Only an Admin caller may target
// someone other than themselves; the handler enforces that via routing.
func (s *Service) Delete(ctx context.Context, targetUserID int32) (*domain.Profile, error) {
	var deleted *domain.Profile
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.DeleteProfile(ctx, targetUserID)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, nil
	}
	if deleted.Avatar != nil {
		s.avatars.Remove(*deleted.Avatar)
	}
	audit.Log(ctx, audit.ActionProfileDelete, targetUserID, "profile deleted")
	return deleted, nil
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
	f, err := os.CreateTemp(strings.TrimSuffix(finalPath, "/"+lastSegment(finalPath)), ".upload-*")
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

func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
