// Package recovery implements the two-phase password-reset flow.
package recovery

import (
	"context"
	"strings"
	"time"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/audit"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/hasher"
	"github.com/lumicast/core/internal/mailer"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/tokencodec"
	"github.com/lumicast/core/internal/validate"
	"github.com/lumicast/core/pkg/log"
)

// Config carries the token/duration parameters the FSM needs.
type Config struct {
	Secret   string
	Duration time.Duration // app_recovery_duration
	Domain   string
	Subject  string
	// ClearSessionOnConfirm resolves the spec's open question in favor of
	// always revoking the subject's existing sessions on confirm.
	ClearSessionOnConfirm bool
}

// Service implements the recovery request/confirm flow.
type Service struct {
	store  store.Store
	hasher *hasher.Hasher
	mailer *mailer.Mailer
	pool   *exec.Pool
	cfg    Config
}

// New builds a recovery Service.
func New(st store.Store, h *hasher.Hasher, m *mailer.Mailer, pool *exec.Pool, cfg Config) *Service {
	return &Service{store: st, hasher: h, mailer: m, pool: pool, cfg: cfg}
}

// RequestResult is returned to the client on a successful request.
type RequestResult struct {
	ID            int32
	Email         string
	RecoveryToken string
}

// Request looks up the profile by email and upserts a single-per-user
// pending recovery row, then emails a confirmation token.
func (s *Service) Request(ctx context.Context, email string) (*RequestResult, error) {
	var c validate.Collector
	c.Email("email", email)
	if err := c.Err(); err != nil {
		return nil, err
	}
	email = strings.ToLower(email)

	var profile *domain.Profile
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.FindProfileByNicknameOrEmail(ctx, "", email, false)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeUserNotFound, "no profile with that email")
	}

	var pending *domain.PendingRecovery
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		finalDate := time.Now().Add(s.cfg.Duration)
		p, err := s.store.UpsertPendingRecovery(ctx, profile.UserID, finalDate)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		pending = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	nonce, err := tokencodec.NewNonce()
	if err != nil {
		return nil, err
	}
	token, err := tokencodec.Encode(pending.ID, nonce, s.cfg.Secret, s.cfg.Duration)
	if err != nil {
		return nil, err
	}

	ttlMinutes := int64(s.cfg.Duration / time.Minute)
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		return s.mailer.SendRecovery(profile.Email, s.cfg.Domain, s.cfg.Subject, profile.Nickname, token, ttlMinutes)
	})
	if err != nil {
		return nil, apperror.New(apperror.KindNotExtended, apperror.CodeErrorSendingEmail, err.Error())
	}

	audit.Log(ctx, audit.ActionRecoveryRequest, profile.UserID, "recovery requested")
	return &RequestResult{ID: pending.ID, Email: profile.Email, RecoveryToken: token}, nil
}

// Confirm redeems a recovery token, setting the subject's new password.
func (s *Service) Confirm(ctx context.Context, token, newPassword string) (*domain.Profile, error) {
	var c validate.Collector
	c.Password("password", newPassword)
	if err := c.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Encode(newPassword)
	if err != nil {
		return nil, err
	}

	pendingID, _, err := tokencodec.Decode(token, s.cfg.Secret)
	if err != nil {
		return nil, err
	}

	var pending *domain.PendingRecovery
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.FindPendingRecoveryByID(ctx, pendingID)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		pending = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeRecoveryNotFound, "pending recovery not found")
	}

	go func() {
		bg := context.Background()
		if _, err := s.store.DeletePendingRecoveriesBefore(bg, time.Now()); err != nil {
			log.L().Warn().Err(err).Msg("opportunistic pending-recovery GC failed")
		}
	}()

	var profile *domain.Profile
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.GetProfileByUserID(ctx, pending.UserID, false)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeUserNotFound, "profile for pending recovery not found")
	}

	err = s.pool.Run(ctx, func(ctx context.Context) error {
		updated, err := s.store.ModifyProfile(ctx, profile.UserID, store.ProfilePatch{Password: &hash})
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		profile = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cfg.ClearSessionOnConfirm {
		_ = s.pool.Run(ctx, func(ctx context.Context) error {
			if _, err := s.store.ModifySession(ctx, profile.UserID, nil); err != nil {
				log.Ctx(ctx).Warn().Err(err).Int32("user_id", profile.UserID).Msg("failed to clear session on recovery confirm")
			}
			return nil
		})
	}

	_ = s.pool.Run(ctx, func(ctx context.Context) error {
		if err := s.store.DeletePendingRecovery(ctx, pendingID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int32("pending_id", pendingID).Msg("failed to delete consumed pending recovery")
		}
		return nil
	})

	audit.Log(ctx, audit.ActionRecoveryConfirm, profile.UserID, "recovery confirmed")
	profile.Password = ""
	return profile, nil
}
