// Package registration implements the two-phase signup flow: a
// Request/Confirm state machine anchored by a signed token and a pending
// row with an absolute expiry.
package registration

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
	Duration time.Duration // app_registr_duration
	Domain   string
	Subject  string
}

// Service implements the registration request/confirm flow.
type Service struct {
	store  store.Store
	hasher *hasher.Hasher
	mailer *mailer.Mailer
	pool   *exec.Pool
	cfg    Config
}

// New builds a registration Service.
func New(st store.Store, h *hasher.Hasher, m *mailer.Mailer, pool *exec.Pool, cfg Config) *Service {
	return &Service{store: st, hasher: h, mailer: m, pool: pool, cfg: cfg}
}

// RequestResult is returned to the client on a successful request.
type RequestResult struct {
	Nickname     string
	Email        string
	RegistrToken string
}

// Request validates the signup fields, reserves the nickname/email, and
// emails a confirmation token.
func (s *Service) Request(ctx context.Context, nickname, email, password string) (*RequestResult, error) {
	var c validate.Collector
	c.Nickname("nickname", nickname)
	c.Email("email", email)
	c.Password("password", password)
	if err := c.Err(); err != nil {
		return nil, err
	}

	nickname = strings.ToLower(nickname)
	email = strings.ToLower(email)

	hash, err := s.hasher.Encode(password)
	if err != nil {
		return nil, err
	}

	var pending *domain.PendingRegistration
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		conflict, err := s.store.UniquenessCheck(ctx, nickname, email)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		if conflict != nil {
			if conflict.NicknameConflict {
				return apperror.New(apperror.KindConflict, apperror.CodeNicknameAlreadyUse, "nickname already in use")
			}
			return apperror.New(apperror.KindConflict, apperror.CodeEmailAlreadyUse, "email already in use")
		}

		finalDate := time.Now().Add(s.cfg.Duration)
		pr, err := s.store.CreatePendingRegistration(ctx, nickname, email, hash, finalDate)
		if err != nil {
			return apperror.New(apperror.KindConflict, apperror.CodeNicknameAlreadyUse, err.Error())
		}
		pending = pr
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
		return s.mailer.SendVerification(email, s.cfg.Domain, s.cfg.Subject, nickname, token, ttlMinutes)
	})
	if err != nil {
		return nil, apperror.New(apperror.KindNotExtended, apperror.CodeErrorSendingEmail, err.Error())
	}

	audit.LogWithDetail(ctx, audit.ActionRegistrRequest, 0, email, "registration requested")
	return &RequestResult{Nickname: nickname, Email: email, RegistrToken: token}, nil
}

// Confirm redeems a registration token, materializing the profile.
func (s *Service) Confirm(ctx context.Context, token string) (*domain.Profile, error) {
	pendingID, _, err := tokencodec.Decode(token, s.cfg.Secret)
	if err != nil {
		return nil, err
	}

	var pending *domain.PendingRegistration
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.FindPendingRegistrationByID(ctx, pendingID)
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
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeRegistrationNotFound, "pending registration not found")
	}

	// Opportunistic GC: fire-and-forget, errors logged only.
	go func() {
		bg := context.Background()
		if _, err := s.store.DeletePendingRegistrationsBefore(bg, time.Now()); err != nil {
			log.L().Warn().Err(err).Msg("opportunistic pending-registration GC failed")
		}
	}()

	var profile *domain.Profile
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.CreateProfile(ctx, store.NewProfile{
			Nickname: pending.Nickname,
			Email:    pending.Email,
			Password: pending.Password,
			Role:     domain.RoleUser,
		})
		if err != nil {
			return apperror.New(apperror.KindConflict, apperror.CodeNicknameAlreadyUse, err.Error())
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deleting the now-consumed pending row is best-effort: the profile
	// already exists, and a stale row here is swept by the first GC pass
	// after its final date.
	_ = s.pool.Run(ctx, func(ctx context.Context) error {
		if err := s.store.DeletePendingRegistration(ctx, pendingID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int32("pending_id", pendingID).Msg("failed to delete consumed pending registration")
		}
		return nil
	})

	audit.Log(ctx, audit.ActionRegistrConfirm, profile.UserID, "registration confirmed")
	profile.Password = ""
	return profile, nil
}
