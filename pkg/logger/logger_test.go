package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, level LogLevel) Logger {
	return NewLogger(&Config{Level: level, Output: buf, JSON: true, TimeFormat: "15:04:05"})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the request logger stored on the context", func(t *testing.T) {
		var buf bytes.Buffer
		scoped := jsonLogger(&buf, InfoLevel).With("actor", "grader@example.com")
		ctx := ContextWithLogger(context.Background(), scoped)

		FromContext(ctx).Info("test created", "test_id", "t-1")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "grader@example.com", entries[0]["actor"])
		assert.Equal(t, "t-1", entries[0]["test_id"])
	})

	t.Run("Should fall back to the default logger", func(t *testing.T) {
		for name, ctx := range map[string]context.Context{
			"empty":      context.Background(),
			"wrong type": context.WithValue(context.Background(), LoggerCtxKey, "not a logger"),
			"nil logger": context.WithValue(context.Background(), LoggerCtxKey, (Logger)(nil)),
		} {
			assert.Same(t, GetDefault(), FromContext(ctx), name)
		}
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	cases := map[LogLevel]charmlog.Level{
		DebugLevel:    charmlog.DebugLevel,
		InfoLevel:     charmlog.InfoLevel,
		WarnLevel:     charmlog.WarnLevel,
		ErrorLevel:    charmlog.ErrorLevel,
		DisabledLevel: disabledCharmLevel,
		NoLevel:       charmlog.InfoLevel,
		"verbose":     charmlog.InfoLevel,
	}
	for level, want := range cases {
		t.Run("Should map "+level.String()+" level", func(t *testing.T) {
			assert.Equal(t, want, level.ToCharmlogLevel())
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("Should emit structured store fields as JSON", func(t *testing.T) {
		var buf bytes.Buffer
		log := jsonLogger(&buf, DebugLevel).With("table", "tests")
		log.Debug("store.find_many", "rows", 3)

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "store.find_many", entries[0]["msg"])
		assert.Equal(t, "tests", entries[0]["table"])
		assert.EqualValues(t, 3, entries[0]["rows"])
	})

	t.Run("Should keep fields added by With off the parent logger", func(t *testing.T) {
		var buf bytes.Buffer
		parent := jsonLogger(&buf, InfoLevel)
		_ = parent.With("driver", "postgres")
		parent.Info("migrations applied")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0], "driver")
	})

	t.Run("Should drop entries below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := jsonLogger(&buf, WarnLevel)
		log.Debug("question loaded")
		log.Info("test listed")
		log.Warn("pool exhausted")
		log.Error("migration failed")

		var msgs []any
		for _, entry := range decodeLines(t, &buf) {
			msgs = append(msgs, entry["msg"])
		}
		assert.Equal(t, []any{"pool exhausted", "migration failed"}, msgs)
	})

	t.Run("Should write nothing when disabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DisabledLevel, Output: &buf})
		log.Error("migration failed")
		assert.Zero(t, buf.Len())
	})

	t.Run("Should stay silent with a nil config under go test", func(t *testing.T) {
		require.True(t, IsTestEnvironment())
		assert.Equal(t, io.Discard, TestConfig().Output)
		assert.Equal(t, os.Stdout, DefaultConfig().Output)
		require.NotNil(t, NewLogger(nil))
	})
}

func TestSetupLoggerOutput(t *testing.T) {
	t.Run("Should route CLI logs to stderr", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		stderr := os.Stderr
		os.Stderr = w
		t.Cleanup(func() {
			os.Stderr = stderr
			Init(TestConfig())
		})

		SetupLogger(string(WarnLevel), true, false)
		os.Stderr = stderr
		GetDefault().Info("hidden")
		GetDefault().Warn("store unavailable", "driver", "sqlite")
		require.NoError(t, w.Close())

		var buf bytes.Buffer
		_, err = io.Copy(&buf, r)
		require.NoError(t, err)
		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "store unavailable", entries[0]["msg"])
		assert.Equal(t, "sqlite", entries[0]["driver"])
	})
}
