package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLevel checks the accepted level spellings.
func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"warn", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{" DEBUG ", zapcore.DebugLevel, true},
		{"", zapcore.InfoLevel, true},
		{"loud", zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		lvl, ok := ParseLevel(tt.in)
		require.Equal(t, tt.ok, ok, "input %q", tt.in)
		require.Equal(t, tt.want, lvl, "input %q", tt.in)
	}
}

// TestNew builds loggers at every accepted level.
func TestNew(t *testing.T) {
	t.Parallel()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		log, err := New(level)
		require.NoError(t, err, "level %q", level)
		require.NotNil(t, log)
	}
}

// TestNewRejectsUnknownLevel ensures a bad level is an error, not a default.
func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New("loud")
	require.Error(t, err)
}
