package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
)

// parsedMultipart is the generic shape every upload endpoint works from:
// recognized text fields plus at most one named file part.
type parsedMultipart struct {
	values   map[string]string
	file     *multipart.FileHeader
	filePart bool // the file field name was present at all (even empty)
}

// parseMultipart reads the request body as multipart/form-data, enforcing
// maxBytes and rejecting any field name outside validFields/fileField as a
// fatal validation error.
func parseMultipart(c *gin.Context, maxBytes int64, validFields []string, fileField string) (*parsedMultipart, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	if err := c.Request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.New(apperror.KindPayloadTooLarge, apperror.CodeInvalidFileSize, "request body exceeds the allowed size")
		}
		return nil, apperror.New(apperror.KindBadRequest, apperror.CodeMultipartIncomplete, "request body is empty or not multipart/form-data")
	}

	allowed := make(map[string]bool, len(validFields))
	for _, f := range validFields {
		allowed[f] = true
	}

	out := &parsedMultipart{values: map[string]string{}}
	for name, vals := range c.Request.MultipartForm.Value {
		if !allowed[name] {
			return nil, apperror.New(apperror.KindValidation, apperror.CodeNoFieldsToUpdate, "unrecognized field").
				WithParams(map[string]any{"valid": validFields})
		}
		if len(vals) > 0 {
			out.values[name] = vals[0]
		}
	}
	for name := range c.Request.MultipartForm.File {
		if name != fileField {
			return nil, apperror.New(apperror.KindValidation, apperror.CodeNoFieldsToUpdate, "unrecognized field").
				WithParams(map[string]any{"valid": validFields})
		}
	}

	if headers := c.Request.MultipartForm.File[fileField]; len(headers) > 0 {
		out.file = headers[0]
		out.filePart = true
	}

	return out, nil
}

// fileExt derives a lowercase extension (without the dot) from a filename,
// falling back to "bin" when absent.
func fileExt(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "bin"
	}
	return strings.ToLower(ext)
}

func (p *parsedMultipart) optionalString(field string) *string {
	v, ok := p.values[field]
	if !ok {
		return nil
	}
	return &v
}
