package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/pkg/response"
)

type recoveryRequest struct {
	Email string `json:"email"`
}

type recoveryResponse struct {
	ID            int32  `json:"id"`
	Email         string `json:"email"`
	RecoveryToken string `json:"recovery_token"`
}

// RequestRecovery handles POST /api/recovery.
func (h *Handler) RequestRecovery(c *gin.Context) {
	var req recoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	result, err := h.recovery.Request(c.Request.Context(), req.Email)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Created(c, recoveryResponse{
		ID:            result.ID,
		Email:         result.Email,
		RecoveryToken: result.RecoveryToken,
	})
}

type recoveryConfirmRequest struct {
	Password string `json:"password"`
}

// ConfirmRecovery handles PUT /api/recovery/{token}.
func (h *Handler) ConfirmRecovery(c *gin.Context) {
	token := c.Param("token")

	var req recoveryConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	profile, err := h.recovery.Confirm(c.Request.Context(), token, req.Password)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Success(c, profile)
}
