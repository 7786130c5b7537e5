package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreeterErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *GreeterError
		contains []string
	}{
		{
			name:     "code and message",
			err:      NewValidationError("EMPTY", "value is empty"),
			contains: []string{"[EMPTY]", "value is empty"},
		},
		{
			name:     "with session",
			err:      NewProtocolError("BRIDGE_DECODE", "bad frame", nil).WithSession("abc"),
			contains: []string{"[BRIDGE_DECODE]", "session:abc", "bad frame"},
		},
		{
			name:     "with file and cause",
			err:      NewIOError("CATALOG_READ", "cannot read catalog", fmt.Errorf("no such file")).WithFile("strings.yml"),
			contains: []string{"strings.yml", "cannot read catalog", ": no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestGreeterErrorIs(t *testing.T) {
	err := NewProtocolError("BRIDGE_DECODE", "bad frame", nil)
	wrapped := fmt.Errorf("session: %w", err)

	assert.True(t, errors.Is(wrapped, &GreeterError{Type: ErrorTypeProtocol, Code: "BRIDGE_DECODE"}))
	assert.False(t, errors.Is(wrapped, &GreeterError{Type: ErrorTypeProtocol, Code: "OTHER"}))
	assert.False(t, IsConfigError(wrapped))
	assert.True(t, IsRecoverable(wrapped))
	assert.True(t, HasCode(wrapped, "BRIDGE_DECODE"))
	assert.False(t, HasCode(wrapped, "OTHER"))
	assert.False(t, HasCode(fmt.Errorf("plain"), "BRIDGE_DECODE"))
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeIO, "X", "y"))
	})

	t.Run("plain error", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := Wrap(cause, ErrorTypeIO, "READ", "read failed")
		require.NotNil(t, err)
		assert.Equal(t, ErrorTypeIO, err.Type)
		assert.False(t, err.Recoverable)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("protocol errors are recoverable", func(t *testing.T) {
		err := WrapProtocol(fmt.Errorf("eof"), "DECODE", "decode failed")
		assert.True(t, err.Recoverable)
	})

	t.Run("preserves greeter error fields", func(t *testing.T) {
		inner := NewValidationError("INNER", "inner").WithSession("s1").WithContext("k", "v")
		outer := WrapConfig(inner, "OUTER", "outer")
		assert.Equal(t, ErrorTypeConfig, outer.Type)
		assert.Equal(t, "s1", outer.Session)
		assert.Equal(t, "v", outer.Context["k"])
		assert.True(t, outer.Recoverable)
	})

	t.Run("wrapper context does not leak into the cause", func(t *testing.T) {
		inner := NewValidationError("INNER", "inner").WithContext("k", "v")
		outer := WrapConfig(inner, "OUTER", "outer").WithContext("extra", 1)
		outer.Context["k"] = "changed"

		assert.Equal(t, map[string]interface{}{"k": "v"}, inner.Context)
		assert.Equal(t, 1, outer.Context["extra"])
	})
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "", FormatError(nil))
	assert.Equal(t, "plain", FormatError(fmt.Errorf("plain")))
	assert.Contains(t, FormatError(WrapConfig(fmt.Errorf("bad value"), "BAD", "rejected")), "config error")

	enhanced := NewEnhancedError("Failed to start", fmt.Errorf("bind: address already in use"),
		ServerStartError(fmt.Errorf("bind: address already in use"), 8501))
	out := FormatError(enhanced)
	assert.Contains(t, out, "Failed to start: bind: address already in use")
	assert.Contains(t, out, "Port already in use")
	assert.Contains(t, out, "greeter serve --port 8502")
}

func TestFormatEnhancedErrorNamesField(t *testing.T) {
	cause := fmt.Errorf("Key: 'Config.Server.Port' Error:Field validation for 'Port' failed on the 'lte' tag")
	enhanced := NewEnhancedError("Failed to load configuration",
		WrapConfig(cause, "CONFIG_INVALID", "configuration rejected"),
		ConfigurationError(cause.Error(), ".greeter.yml"))

	out := FormatError(enhanced)
	assert.True(t, strings.HasPrefix(out, "Failed to load configuration: [CONFIG_INVALID] configuration rejected: Key: 'Config.Server.Port'"))
	assert.Contains(t, out, "Invalid port")

	assert.Equal(t, "Just a title", FormatError(NewEnhancedError("Just a title", nil, nil)))
}

func TestConfigurationErrorSuggestions(t *testing.T) {
	suggestions := ConfigurationError("Key: 'Config.Widget.Locale' Error", ".greeter.yml")
	titles := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		titles = append(titles, s.Title)
	}
	assert.Contains(t, titles, "Invalid locale")
	assert.Contains(t, titles, "Override with environment variables")
}

type recordingLogger struct {
	errors []string
	warns  []string
}

func (r *recordingLogger) Error(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	h := NewErrorHandler(logger)
	ctx := context.Background()

	h.Handle(ctx, nil)
	h.Handle(ctx, NewProtocolError("DECODE", "bad", nil))
	h.Handle(ctx, NewIOError("READ", "bad", nil))
	h.Handle(ctx, fmt.Errorf("plain"))

	assert.Len(t, logger.warns, 1)
	assert.Len(t, logger.errors, 2)
}
