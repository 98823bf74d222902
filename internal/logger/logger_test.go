package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput points the logger at a buffer until the test ends.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	prevOut, prevFile, prevColor, prevFormat := out, file, color, format
	out, file, color = buf, nil, false
	mu.Unlock()
	prevLevel := level.Level()
	rebuild()

	t.Cleanup(func() {
		mu.Lock()
		out, file, color, format = prevOut, prevFile, prevColor, prevFormat
		mu.Unlock()
		level.Set(prevLevel)
		rebuild()
	})
	return buf
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf := captureOutput(t)

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelFiltersDebugAndInfo", func(t *testing.T) {
		buf := captureOutput(t)

		SetLevel("WARN")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "[WARN]")
		assert.Contains(t, out, "[ERROR]")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf := captureOutput(t)

		SetLevel("error")

		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})
}

func TestSetLevel(t *testing.T) {
	t.Run("SetLevelIgnoresInvalidValues", func(t *testing.T) {
		captureOutput(t)

		SetLevel("INFO")
		SetLevel("LOUD")
		assert.Equal(t, LevelInfo, CurrentLevel())
	})
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
	} {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseLevel("trace")
	assert.False(t, ok)
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestMessageFormatting(t *testing.T) {
	t.Run("FormatsStructuredFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		Info("verify finished", KeyUser, "alice", KeyTries, 2)

		out := buf.String()
		assert.Contains(t, out, "verify finished")
		assert.Contains(t, out, "user=alice")
		assert.Contains(t, out, "tries=2")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		Info("prompt rewritten", "prompt", "Password for alice@EXAMPLE.COM: ")

		assert.Contains(t, buf.String(), `prompt="Password for alice@EXAMPLE.COM: "`)
	})

	t.Run("GroupsPrefixKeys", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		With().WithGroup("kerberos").Info("login", "realm", "EXAMPLE.COM")

		assert.Contains(t, buf.String(), "kerberos.realm=EXAMPLE.COM")
	})
}

func TestRedaction(t *testing.T) {
	t.Run("TextHandlerRedactsSecrets", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		Info("oops", "password", "hunter2", "otp_secret", "JBSWY3DPEHPK3PXP")

		out := buf.String()
		assert.NotContains(t, out, "hunter2")
		assert.NotContains(t, out, "JBSWY3DPEHPK3PXP")
		assert.Contains(t, out, "password=[REDACTED]")
	})

	t.Run("JSONHandlerRedactsSecrets", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		SetFormat("json")

		Info("oops", "credential", "hunter2")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, redactedValue, entry["credential"])
	})

	t.Run("BadPasswordFlagIsNotRedacted", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		Info("verify finished", KeyBadPassword, true)

		assert.Contains(t, buf.String(), "bad_password=true")
	})

	t.Run("IsSecretKey", func(t *testing.T) {
		assert.True(t, IsSecretKey("Password"))
		assert.True(t, IsSecretKey("totp_secret"))
		assert.False(t, IsSecretKey("user"))
	})
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("json message", KeyMethod, "passwd")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "json message", entry["msg"])
	assert.Equal(t, "passwd", entry[KeyMethod])
	assert.Contains(t, entry, "time")
}

func TestFormatSwitching(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	SetFormat("xml")
	Info("still text")
	assert.True(t, strings.HasPrefix(buf.String(), "["))
}

// ============================================================================
// Context Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		lc := NewLogContext("alice").WithMethod("kerberos").WithEvent("evt-1")
		ctx := WithContext(context.Background(), lc)
		InfoCtx(ctx, "backend ready")

		out := buf.String()
		assert.Contains(t, out, "user=alice")
		assert.Contains(t, out, "method=kerberos")
		assert.Contains(t, out, "event_id=evt-1")
	})

	t.Run("ContextWithoutLogContextHandled", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		InfoCtx(context.Background(), "plain")
		assert.Contains(t, buf.String(), "plain")
	})

	t.Run("ContextWithMethodCreatesContext", func(t *testing.T) {
		ctx := ContextWithMethod(context.Background(), "otp")
		lc := FromContext(ctx)
		require.NotNil(t, lc)
		assert.Equal(t, "otp", lc.Method)
	})
}

func TestLogContext(t *testing.T) {
	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("alice")
		clone := lc.WithMethod("passwd")
		assert.Empty(t, lc.Method)
		assert.Equal(t, "passwd", clone.Method)
		assert.Equal(t, "alice", clone.User)
	})

	t.Run("NilReceiver", func(t *testing.T) {
		var lc *LogContext
		assert.Equal(t, "otp", lc.WithMethod("otp").Method)
		assert.Zero(t, lc.Elapsed())
	})

	t.Run("TraceFieldsComeFirst", func(t *testing.T) {
		lc := NewLogContext("alice").WithTrace("t1", "s1")
		assert.Equal(t, []any{KeyTraceID, "t1", KeySpanID, "s1", KeyUser, "alice"}, lc.fields())
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, slog.Attr{}, Err(nil))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, uint64(3), Tries(3).Value.Uint64())
}

func TestConcurrentLogging(t *testing.T) {
	captureOutput(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Warn("concurrent", "worker", i, "iteration", j)
			}
		}(i)
	}
	wg.Wait()
}

func TestInit(t *testing.T) {
	t.Run("InitWithFile", func(t *testing.T) {
		captureOutput(t)

		path := filepath.Join(t.TempDir(), "auth.log")
		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("InitWithUnwritablePath", func(t *testing.T) {
		captureOutput(t)

		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "auth.log")})
		assert.Error(t, err)
	})
}
