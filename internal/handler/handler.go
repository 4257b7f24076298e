// Package handler wires the gin HTTP surface onto the identity-core
// services: request binding, multipart parsing, cookie management, and
// translating service results/errors into the shared response envelope.
package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/middleware"
	"github.com/lumicast/core/internal/service/credential"
	"github.com/lumicast/core/internal/service/gc"
	"github.com/lumicast/core/internal/service/profile"
	"github.com/lumicast/core/internal/service/recovery"
	"github.com/lumicast/core/internal/service/registration"
	"github.com/lumicast/core/internal/service/stream"
)

const tokenCookieName = "token"

// Handler holds every service the identity-core HTTP surface dispatches to.
type Handler struct {
	credential   *credential.Service
	registration *registration.Service
	recovery     *recovery.Service
	profile      *profile.Service
	stream       *stream.Service
	gc           *gc.Service
	auth         *middleware.Authenticator
	accessTTL    time.Duration
	uploadBytes  int64
}

// New builds a Handler. uploadBytes bounds the multipart body size accepted
// by the profile/stream upload endpoints.
func New(
	cred *credential.Service,
	reg *registration.Service,
	rec *recovery.Service,
	prof *profile.Service,
	strm *stream.Service,
	gcSvc *gc.Service,
	auth *middleware.Authenticator,
	accessTTL time.Duration,
	uploadBytes int64,
) *Handler {
	return &Handler{
		credential:   cred,
		registration: reg,
		recovery:     rec,
		profile:      prof,
		stream:       strm,
		gc:           gcSvc,
		auth:         auth,
		accessTTL:    accessTTL,
		uploadBytes:  uploadBytes,
	}
}

func (h *Handler) maxUploadBytes() int64 { return h.uploadBytes }

// RegisterRoutes mounts every endpoint in the external-interface contract.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/login", h.Login)
		api.POST("/logout", h.auth.Require(), h.Logout)
		api.POST("/token", h.RefreshToken)

		api.POST("/registration", h.RequestRegistration)
		api.PUT("/registration/:token", h.ConfirmRegistration)

		api.POST("/recovery", h.RequestRecovery)
		api.PUT("/recovery/:token", h.ConfirmRecovery)

		api.GET("/clear_for_expired", h.auth.RequireRole(domain.RoleAdmin), h.ClearExpired)

		api.PUT("/profiles", h.auth.Require(), h.UpdateProfile)
		api.PUT("/profiles_new_password", h.auth.Require(), h.ChangePassword)
		api.DELETE("/profiles/:id", h.auth.RequireRole(domain.RoleAdmin), h.DeleteProfileByID)
		api.DELETE("/profiles_current", h.auth.Require(), h.DeleteCurrentProfile)

		api.POST("/streams", h.auth.Require(), h.CreateStream)
		api.PUT("/streams/:id", h.auth.Require(), h.UpdateStream)
		api.PUT("/streams/toggle/:id", h.auth.Require(), h.ToggleStreamState)
		api.DELETE("/streams/:id", h.auth.Require(), h.DeleteStream)
	}
}

func setTokenCookie(c *gin.Context, token string, maxAge time.Duration) {
	c.SetCookie(tokenCookieName, token, int(maxAge.Seconds()), "/", "", false, true)
}

func clearTokenCookie(c *gin.Context) {
	c.SetCookie(tokenCookieName, "", -1, "/", "", false, true)
}
