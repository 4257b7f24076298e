// Package middleware provides the Authenticator gin.HandlerFunc that binds
// an incoming request to the profile whose session it carries.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/tokencodec"
	"github.com/lumicast/core/pkg/log"
	"github.com/lumicast/core/pkg/response"
)

const (
	tokenCookieName = "token"
	authHeaderKey   = "Authorization"
	bearerPrefix    = "Bearer "

	// ContextProfileKey is where Authenticator stores the bound domain.Profile.
	ContextProfileKey = "auth_profile"
)

// Authenticator verifies the caller's token against the session it was
// issued against and attaches the resolved profile to the request context.
type Authenticator struct {
	store  store.Store
	pool   *exec.Pool
	secret string
}

// NewAuthenticator builds an Authenticator reading sessions from st and
// verifying tokens signed with secret, offloading each store call through
// pool like every other DB touch in the service layer.
func NewAuthenticator(st store.Store, pool *exec.Pool, secret string) *Authenticator {
	return &Authenticator{store: st, pool: pool, secret: secret}
}

// Require returns middleware that rejects unauthenticated requests.
func (a *Authenticator) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := a.authenticate(c)
		if err != nil {
			response.WriteError(c, err)
			c.Abort()
			return
		}
		c.Set(ContextProfileKey, profile)
		c.Set(log.FieldUserID, profile.UserID)
		c.Set(log.FieldNickname, profile.Nickname)
		c.Next()
	}
}

// RequireRole returns middleware equivalent to Require that additionally
// rejects callers whose role is not in allowed.
func (a *Authenticator) RequireRole(allowed ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := a.authenticate(c)
		if err != nil {
			response.WriteError(c, err)
			c.Abort()
			return
		}

		ok := false
		for _, r := range allowed {
			if profile.Role == r {
				ok = true
				break
			}
		}
		if !ok {
			response.WriteError(c, apperror.New(apperror.KindForbidden, apperror.CodeAccessDenied, "role not permitted"))
			c.Abort()
			return
		}

		c.Set(ContextProfileKey, profile)
		c.Set(log.FieldUserID, profile.UserID)
		c.Set(log.FieldNickname, profile.Nickname)
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) (*domain.Profile, error) {
	token := extractToken(c)
	if token == "" {
		return nil, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no token presented")
	}

	userID, nonce, err := tokencodec.Decode(token, a.secret)
	if err != nil {
		return nil, err
	}

	var sess *domain.Session
	if err := a.pool.Run(c.Request.Context(), func(ctx context.Context) error {
		s, err := a.store.FindSessionByUserID(ctx, userID)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		sess = s
		return nil
	}); err != nil {
		return nil, err
	}
	if sess == nil || sess.NumToken == nil || *sess.NumToken != nonce {
		return nil, apperror.New(apperror.KindForbidden, apperror.CodeUnacceptableToken, "token does not match active session")
	}

	var profile *domain.Profile
	if err := a.pool.Run(c.Request.Context(), func(ctx context.Context) error {
		p, err := a.store.GetProfileByUserID(ctx, userID, false)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		profile = p
		return nil
	}); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeUserNotFound, "profile no longer exists")
	}

	return profile, nil
}

// extractToken prefers the Authorization header over the cookie.
func extractToken(c *gin.Context) string {
	if h := c.GetHeader(authHeaderKey); h != "" {
		if strings.HasPrefix(h, bearerPrefix) {
			return strings.TrimPrefix(h, bearerPrefix)
		}
		return h
	}
	if v, err := c.Cookie(tokenCookieName); err == nil {
		return v
	}
	return ""
}

// ProfileFrom extracts the profile Authenticator attached to c.
func ProfileFrom(c *gin.Context) (*domain.Profile, bool) {
	v, ok := c.Get(ContextProfileKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*domain.Profile)
	return p, ok
}
