package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorHelpers(t *testing.T) {
	base := NewBackendError(ErrCodeNotFound, "Resume not found", 404)
	wrapped := fmt.Errorf("fetch resume: %w", base)

	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantStatus  int
		wantMessage string
	}{
		{"direct", base, ErrCodeNotFound, 404, "Resume not found"},
		{"wrapped", wrapped, ErrCodeNotFound, 404, "Resume not found"},
		{"plain error", fmt.Errorf("boom"), "", 0, "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode != "", IsCode(tt.err, tt.wantCode))
			assert.Equal(t, tt.wantStatus, StatusCode(tt.err))
			assert.Equal(t, tt.wantMessage, UserMessage(tt.err))
		})
	}

	assert.Empty(t, UserMessage(nil))
}

func TestLogErrorExpandsAppError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithHandler(slog.NewJSONHandler(&buf, nil))

	err := NewBackendError(ErrCodeBackendStatus, "Failed to generate resume", 502).
		WithContext("operation", "generate")
	logger.LogError(err, "backend call failed", "session", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "backend", entry["error_type"])
	assert.Equal(t, ErrCodeBackendStatus, entry["error_code"])
	assert.Equal(t, float64(502), entry["status"])
	assert.Equal(t, "generate", entry["operation"])
	assert.Equal(t, "abc", entry["session"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose")
	assert.Error(t, err)

	logger, err := New("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
