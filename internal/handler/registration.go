package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/pkg/response"
)

type registrationRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registrationResponse struct {
	Nickname     string `json:"nickname"`
	Email        string `json:"email"`
	RegistrToken string `json:"registr_token"`
}

// RequestRegistration handles POST /api/registration.
func (h *Handler) RequestRegistration(c *gin.Context) {
	var req registrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	result, err := h.registration.Request(c.Request.Context(), req.Nickname, req.Email, req.Password)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Created(c, registrationResponse{
		Nickname:     result.Nickname,
		Email:        result.Email,
		RegistrToken: result.RegistrToken,
	})
}

// ConfirmRegistration handles PUT /api/registration/{token}.
func (h *Handler) ConfirmRegistration(c *gin.Context) {
	token := c.Param("token")
	profile, err := h.registration.Confirm(c.Request.Context(), token)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.Created(c, profile)
}
