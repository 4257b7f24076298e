package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/pkg/response"
)

type clearExpiredResponse struct {
	CountInactiveRegistr int64 `json:"count_inactive_registr"`
	CountInactiveRecover int64 `json:"count_inactive_recover"`
}

// ClearExpired handles GET /api/clear_for_expired.
func (h *Handler) ClearExpired(c *gin.Context) {
	result, err := h.gc.ClearExpired(c.Request.Context())
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Success(c, clearExpiredResponse{
		CountInactiveRegistr: result.CountInactiveRegistr,
		CountInactiveRecover: result.CountInactiveRecover,
	})
}
