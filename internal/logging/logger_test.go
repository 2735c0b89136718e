package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "secret is redacted",
			input:    "my-secret-password",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "complex secret is redacted",
			input:    "password123!@#",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Secret(tt.input).String())
			assert.Equal(t, tt.expected, Secret(tt.input).GoString())
		})
	}
}

func TestSecretRedactedInFormattedOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(false, true)
	logger.SetOutput(&buf)

	logger.Info("Retrieved secret: %s", Secret("super-secret-password-12345"))
	logger.Warn("Value %#v", Secret("super-secret-password-12345"))

	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), "super-secret-password-12345")
}

func TestRedact(t *testing.T) {
	t.Parallel()

	out := Redact("token=s.abcdef and pw=hunter22", []string{"s.abcdef", "hunter22", "abc", ""})
	assert.Equal(t, "token=[REDACTED] and pw=[REDACTED]", out)
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(false, true)
	logger.SetOutput(&buf)

	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	logger.Debug("debug message")
	logger.Trace("trace message")

	out := buf.String()
	assert.Contains(t, out, "✓ info message")
	assert.Contains(t, out, "⚠ warn message")
	assert.Contains(t, out, "✗ error message")
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "trace message")
}

func TestLoggerDebugAndTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(true, true)
	logger.SetOutput(&buf)

	logger.Debug("debug %d", 1)
	logger.Trace("hidden")
	assert.Contains(t, buf.String(), "[DEBUG] debug 1")
	assert.NotContains(t, buf.String(), "hidden")

	logger.SetTrace(true)
	logger.Trace("cache hit %s", "a:b")
	assert.Contains(t, buf.String(), "[TRACE] cache hit a:b")
}

func TestSetTraceImpliesDebug(t *testing.T) {
	t.Parallel()

	logger := New(false, true)
	logger.SetOutput(&bytes.Buffer{})
	assert.False(t, logger.DebugEnabled())

	logger.SetTrace(true)
	assert.True(t, logger.DebugEnabled())
}

func TestColorOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(false, false)
	logger.SetOutput(&buf)

	logger.Error("failed: %v", fmt.Errorf("boom"))
	assert.Contains(t, buf.String(), "\033[31m")
	assert.Contains(t, buf.String(), "failed: boom")
}
