package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/domain"
	"github.com/lumicast/core/internal/middleware"
	"github.com/lumicast/core/internal/service/stream"
	"github.com/lumicast/core/pkg/response"
)

var streamValidFields = []string{"title", "descript", "starttime", "source", "tags"}

func decodeTags(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, apperror.New(apperror.KindNotAcceptable, apperror.CodeInvalidFieldTag, "tags must be a JSON array of strings")
	}
	return tags, nil
}

func logoUploadFromForm(form *parsedMultipart) (stream.LogoUpload, error) {
	var up stream.LogoUpload
	if !form.filePart {
		return up, nil
	}
	up.Present = true
	if form.file == nil {
		return up, nil
	}
	up.Size = form.file.Size
	up.ContentType = form.file.Header.Get("Content-Type")
	up.Ext = fileExt(form.file.Filename)
	f, err := form.file.Open()
	if err != nil {
		return up, apperror.New(apperror.KindNotExtended, apperror.CodeErrorConvertingFile, err.Error())
	}
	up.Reader = f
	return up, nil
}

// ownerFilter returns nil (no owner filter) for an Admin caller, or a
// pointer to the caller's UserID otherwise — the owner-override rule.
func ownerFilter(caller *domain.Profile) *int32 {
	if caller.Role == domain.RoleAdmin {
		return nil
	}
	id := caller.UserID
	return &id
}

// CreateStream handles POST /api/streams.
func (h *Handler) CreateStream(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	form, err := parseMultipart(c, h.maxUploadBytes(), streamValidFields, "logofile")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	tags, err := decodeTags(form.values["tags"])
	if err != nil {
		response.WriteError(c, err)
		return
	}

	logo, err := logoUploadFromForm(form)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	var startTime time.Time
	if raw, ok := form.values["starttime"]; ok {
		startTime, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_field", "starttime must be RFC3339").
				WithParams(map[string]any{"field": "starttime"}))
			return
		}
	}

	in := stream.CreateInput{
		Title:     form.values["title"],
		Descript:  form.optionalString("descript"),
		StartTime: startTime,
		Source:    form.optionalString("source"),
		Tags:      tags,
		Logo:      logo,
	}

	created, tagRows, err := h.stream.Create(c.Request.Context(), caller.UserID, in)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.Created(c, streamEnvelope{Stream: created, Tags: tagRows})
}

type streamEnvelope struct {
	Stream any `json:"stream"`
	Tags   any `json:"tags"`
}

// UpdateStream handles PUT /api/streams/{id}.
func (h *Handler) UpdateStream(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	id, err := int32Param(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	owner := ownerFilter(caller)
	current, _, err := h.stream.LookupForUpdate(c.Request.Context(), id, owner)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if current == nil {
		response.NoContent(c)
		return
	}

	form, err := parseMultipart(c, h.maxUploadBytes(), streamValidFields, "logofile")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	var tags []string
	if raw, ok := form.values["tags"]; ok {
		tags, err = decodeTags(raw)
		if err != nil {
			response.WriteError(c, err)
			return
		}
	}

	logo, err := logoUploadFromForm(form)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	in := stream.UpdateInput{
		Title:    form.optionalString("title"),
		Descript: form.optionalString("descript"),
		Source:   form.optionalString("source"),
		Tags:     tags,
		Logo:     logo,
	}
	if raw, ok := form.values["starttime"]; ok {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_field", "starttime must be RFC3339").
				WithParams(map[string]any{"field": "starttime"}))
			return
		}
		in.StartTime = &t
	}

	updated, tagRows, err := h.stream.Update(c.Request.Context(), id, owner, current, in)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if updated == nil {
		response.NoContent(c)
		return
	}

	response.Success(c, streamEnvelope{Stream: updated, Tags: tagRows})
}

type toggleStateRequest struct {
	State string `json:"state"`
}

// ToggleStreamState handles PUT /api/streams/toggle/{id}.
func (h *Handler) ToggleStreamState(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	id, err := int32Param(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	var req toggleStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, apperror.New(apperror.KindValidation, "malformed_body", err.Error()))
		return
	}

	owner := ownerFilter(caller)
	current, _, err := h.stream.LookupForUpdate(c.Request.Context(), id, owner)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if current == nil {
		response.NoContent(c)
		return
	}

	updated, tagRows, err := h.stream.ToggleState(c.Request.Context(), id, owner, current, domain.StreamState(req.State))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if updated == nil {
		response.NoContent(c)
		return
	}

	response.Success(c, streamEnvelope{Stream: updated, Tags: tagRows})
}

// DeleteStream handles DELETE /api/streams/{id}.
func (h *Handler) DeleteStream(c *gin.Context) {
	caller, ok := middleware.ProfileFrom(c)
	if !ok {
		response.WriteError(c, apperror.New(apperror.KindUnauthorized, apperror.CodeMissingToken, "no authenticated profile"))
		return
	}

	id, err := int32Param(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}

	deleted, err := h.stream.Delete(c.Request.Context(), id, ownerFilter(caller))
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
