// Package credential implements login, logout, and token-refresh
// orchestration: the part of the identity core that mints and rotates the
// dual access/refresh tokens bound to a session nonce.
package credential

import (
	"context"
	"strings"
	"time"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/audit"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/hasher"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/tokencodec"
	"github.com/lumicast/core/internal/validate"
)

// Config carries the token secret and lifetimes the service needs.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service implements login/logout/refresh.
type Service struct {
	store  store.Store
	hasher *hasher.Hasher
	pool   *exec.Pool
	cfg    Config
}

// New builds a credential Service.
func New(st store.Store, h *hasher.Hasher, pool *exec.Pool, cfg Config) *Service {
	return &Service{store: st, hasher: h, pool: pool, cfg: cfg}
}

// Tokens is the pair returned to the client on login and refresh.
type Tokens struct {
	Access  string
	Refresh string
}

// Login validates identifier+password and mints a fresh token pair.
func (s *Service) Login(ctx context.Context, identifier, password string) (*domain.Profile, Tokens, error) {
	var c validate.Collector
	c.RequiredRange("identifier", identifier, 1, 254)
	c.Password("password", password)
	if err := c.Err(); err != nil {
		return nil, Tokens{}, err
	}

	identifier = strings.ToLower(identifier)

	var profile *domain.Profile
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		p, err := s.store.FindProfileByNicknameOrEmail(ctx, identifier, identifier, true)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, Tokens{}, err
	}
	if profile == nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, 0, identifier, "no matching profile")
		return nil, Tokens{}, apperror.New(apperror.KindUnauthorized, apperror.CodeNicknameOrEmailIncorrect, "nickname or email incorrect")
	}

	match, err := s.hasher.Verify(password, profile.Password)
	if err != nil {
		return nil, Tokens{}, apperror.New(apperror.KindInternal, apperror.CodeInvalidHash, "stored password hash is malformed")
	}
	if !match {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, profile.UserID, identifier, "password mismatch")
		return nil, Tokens{}, apperror.New(apperror.KindUnauthorized, apperror.CodePasswordIncorrect, "password incorrect")
	}

	tokens, err := s.issue(ctx, profile.UserID)
	if err != nil {
		return nil, Tokens{}, err
	}

	audit.Log(ctx, audit.ActionLogin, profile.UserID, "login succeeded")
	profile.Password = ""
	return profile, tokens, nil
}

// Logout clears the caller's session nonce.
func (s *Service) Logout(ctx context.Context, userID int32) error {
	return s.pool.Run(ctx, func(ctx context.Context) error {
		sess, err := s.store.ModifySession(ctx, userID, nil)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		if sess == nil {
			return apperror.New(apperror.KindInternal, apperror.CodeSessionMissing, "session row missing")
		}
		audit.Log(ctx, audit.ActionLogout, userID, "logout")
		return nil
	})
}

// Refresh decodes token, checks it against the live session nonce with
// exact equality, and issues a fresh pair.
func (s *Service) Refresh(ctx context.Context, token string) (Tokens, error) {
	userID, nonce, err := tokencodec.Decode(token, s.cfg.Secret)
	if err != nil {
		return Tokens{}, err
	}

	var sess *domain.Session
	err = s.pool.Run(ctx, func(ctx context.Context) error {
		sv, err := s.store.FindSessionByUserID(ctx, userID)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		sess = sv
		return nil
	})
	if err != nil {
		return Tokens{}, err
	}
	if sess == nil || sess.NumToken == nil || *sess.NumToken != nonce {
		return Tokens{}, apperror.New(apperror.KindForbidden, apperror.CodeUnacceptableToken, "token does not match active session")
	}

	tokens, err := s.issue(ctx, userID)
	if err != nil {
		return Tokens{}, err
	}
	audit.Log(ctx, audit.ActionRefresh, userID, "token refreshed")
	return tokens, nil
}

// issue generates a fresh nonce, mints both tokens against it, and persists
// the nonce as the new session value.
func (s *Service) issue(ctx context.Context, userID int32) (Tokens, error) {
	nonce, err := tokencodec.NewNonce()
	if err != nil {
		return Tokens{}, err
	}

	access, err := tokencodec.Encode(userID, nonce, s.cfg.Secret, s.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := tokencodec.Encode(userID, nonce, s.cfg.Secret, s.cfg.RefreshTTL)
	if err != nil {
		return Tokens{}, err
	}

	err = s.pool.Run(ctx, func(ctx context.Context) error {
		sess, err := s.store.ModifySession(ctx, userID, &nonce)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		if sess == nil {
			return apperror.New(apperror.KindInternal, apperror.CodeSessionMissing, "session row missing")
		}
		return nil
	})
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{Access: access, Refresh: refresh}, nil
}
