package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumicast/core/pkg/log"
)

func withCapturedLogger(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	return log.WithLogger(context.Background(), logger), &buf
}

func TestLogEmitsActionAndUserID(t *testing.T) {
	ctx, buf := withCapturedLogger(t)

	Log(ctx, ActionLogin, 42, "user logged in")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ActionLogin, entry[FieldAction])
	assert.Equal(t, float64(42), entry[log.FieldUserID])
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, "user logged in", entry["message"])
}

func TestLogWithDetailIncludesDetailField(t *testing.T) {
	ctx, buf := withCapturedLogger(t)

	LogWithDetail(ctx, ActionStreamToggleState, 7, "Waiting->Preparing", "stream state changed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ActionStreamToggleState, entry[FieldAction])
	assert.Equal(t, "Waiting->Preparing", entry[FieldDetail])
}
