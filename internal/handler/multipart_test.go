package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumicast/core/internal/apperror"
)

func newMultipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func ginContextFor(req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestParseMultipartEmptyBodyIsBadRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil))
	c := ginContextFor(req)

	_, err := parseMultipart(c, 1024, []string{"title"}, "logofile")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindBadRequest, appErr.Kind)
	assert.Equal(t, apperror.CodeMultipartIncomplete, appErr.Code)
}

func TestParseMultipartOversizeBodyIsPayloadTooLarge(t *testing.T) {
	req := newMultipartRequest(t, map[string]string{"title": "a stream with a reasonably long title"})
	c := ginContextFor(req)

	_, err := parseMultipart(c, 10, []string{"title"}, "logofile")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindPayloadTooLarge, appErr.Kind)
	assert.Equal(t, apperror.CodeInvalidFileSize, appErr.Code)
}

func TestParseMultipartUnrecognizedFieldListsValidNames(t *testing.T) {
	req := newMultipartRequest(t, map[string]string{"title": "ok", "bogus": "nope"})
	c := ginContextFor(req)

	validFields := []string{"title", "descript"}
	_, err := parseMultipart(c, 1<<20, validFields, "logofile")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeNoFieldsToUpdate, appErr.Code)
	assert.Equal(t, validFields, appErr.Params["valid"])
}

func TestParseMultipartAcceptsKnownFields(t *testing.T) {
	req := newMultipartRequest(t, map[string]string{"title": "ok"})
	c := ginContextFor(req)

	form, err := parseMultipart(c, 1<<20, []string{"title"}, "logofile")
	require.NoError(t, err)
	assert.Equal(t, "ok", form.values["title"])
}
