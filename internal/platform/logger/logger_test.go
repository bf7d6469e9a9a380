package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  slog.Level
		valid bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"Warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseLevel(tc.name)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.valid, ok)
		})
	}
}

func TestSetupWritesJSONAtLevel(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	buf := &TestLogBuffer{}
	l := setup(buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "key", "value")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "value", entries[0]["key"])
	assert.Same(t, l, slog.Default())
}

func TestContextLogger(t *testing.T) {
	_, l := NewTestLogger(t)

	assert.Nil(t, FromContext(context.Background()))
	assert.Same(t, slog.Default(), FromContextOrDefault(context.Background()))

	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, l, FromContextOrDefault(ctx))
}
