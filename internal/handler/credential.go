package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/middleware"
	"github.com/lumicast/core/pkg/log"
	"github.com/lumicast/core/pkg/response"
)

type loginRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type loginResponse struct {
	User    any    `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login handles POST /api/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	profile, tokens, err := h.credential.Login(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	setTokenCookie(c, tokens.Access, h.accessTTL)
	response.Success(c, loginResponse{User: profile, Access: tokens.Access, Refresh: tokens.Refresh})
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	if err := h.credential.Logout(c.Request.Context(), caller.UserID); err != nil {
		response.WriteError(c, err)
		return
	}

	clearTokenCookie(c)
	response.Success(c, gin.H{})
}

type refreshRequest struct {
	Token string `json:"token"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RefreshToken handles POST /api/token.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	tokens, err := h.credential.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("token refresh rejected")
		response.WriteError(c, err)
		return
	}

	response.Success(c, refreshResponse{Access: tokens.Access, Refresh: tokens.Refresh})
}
