package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Output: &buf}).WithComponent(ComponentLedger)
	logger.Info("hello", FieldCount, 2)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "component="), out)
	assert.Contains(t, out, "component=ledger")
	assert.Contains(t, out, "count=2")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "json", Output: &buf}).Warn("careful")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
}

func TestNewContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).With(FieldRequestID, "req_1")

	ctx := NewContext(context.Background(), logger)
	FromContext(ctx).InfoContext(ctx, "inside")

	assert.Same(t, logger, FromContext(ctx))
	assert.Contains(t, buf.String(), "request_id=req_1")
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	ctx := context.Background()

	sl.LogTransactionAdded(ctx, core.Transaction{ID: "a", Description: "Rent", Amount: 800, Type: core.Expense})
	logger := New(Config{Output: &buf})
	logger.Error("save failed", NewFields().WithError(errors.New("disk full"), ErrorTypeWrite).WithOperation(OpSave).ToSlice()...)

	req := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	sl.LogHTTPEnd(ctx, req, http.StatusUnprocessableEntity, 3*time.Millisecond, "127.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "tx_id=a")
	assert.Contains(t, out, "error_type=persistence_write_error")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status_code=422")
}
