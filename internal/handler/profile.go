package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/middleware"
	"github.com/lumicast/core/internal/service/profile"
	"github.com/lumicast/core/pkg/response"
)

// UpdateProfile handles PUT /api/profiles.
func (h *Handler) UpdateProfile(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	form, err := parseMultipart(c, h.maxUploadBytes(), profile.ValidFields, "avatarfile")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	in := profile.UpdateInput{
		Nickname: form.optionalString("nickname"),
		Email:    form.optionalString("email"),
		Role:     form.optionalString("role"),
		Descript: form.optionalString("descript"),
		Theme:    form.optionalString("theme"),
		Locale:   form.optionalString("locale"),
	}

	if form.filePart {
		in.Avatar.Present = true
		if form.file != nil {
			in.Avatar.Size = form.file.Size
			in.Avatar.ContentType = form.file.Header.Get("Content-Type")
			in.Avatar.Ext = fileExt(form.file.Filename)
			f, err := form.file.Open()
			if err != nil {
				response.WriteError(c, apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error()))
				return
			}
			defer f.Close()
			in.Avatar.Reader = f
		}
	}

	updated, err := h.profile.Update(c.Request.Context(), caller, in)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Success(c, updated)
}

type changePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles PUT /api/profiles_new_password.
func (h *Handler) ChangePassword(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	updated, err := h.profile.ChangePassword(c.Request.Context(), caller, req.Password, req.NewPassword)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Success(c, updated)
}

// DeleteProfileByID handles DELETE /api/profiles/{id} (Admin only).
func (h *Handler) DeleteProfileByID(c *gin.Context) {
	id, err := int32Param(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	deleted, err := h.profile.Delete(c.Request.Context(), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if deleted == nil {
		response.NoContent(c)
		return
	}

	response.Success(c, deleted)
}

// DeleteCurrentProfile handles DELETE /api/profiles_current.
func (h *Handler) DeleteCurrentProfile(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	deleted, err := h.profile.Delete(c.Request.Context(), caller.UserID)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if deleted == nil {
		response.NoContent(c)
		return
	}

	response.Success(c, deleted)
}
