package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lumicast/core/internal/apperror"
)

// int32Param parses the named URL parameter as an int32, distinguishing an
// unparseable value (not an integer at all) from one that parses but
// overflows int32 range, per the status-code contract's 415/416 split.
func int32Param(c *gin.Context, name string) (int32, error) {
	raw := c.Param(name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.New(apperror.KindUnsupportedMedia, apperror.CodeURLParamParseFailure, "url parameter is not an integer").
			WithParams(map[string]any{"param": name, "value": raw})
	}
	if n < -2147483648 || n > 2147483647 {
		return 0, apperror.New(apperror.KindRangeNotSatisfiable, apperror.CodeURLParamParseFailure, "url parameter out of int32 range").
			WithParams(map[string]any{"param": name, "value": raw})
	}
	return int32(n), nil
}
