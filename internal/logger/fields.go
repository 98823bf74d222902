package logger

import (
	"log/slog"
	"strings"
)

// Standard field keys for structured logging.
// Use these keys consistently so audit lines can be queried across methods.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Identity
	// ========================================================================
	KeyUser       = "user"        // invoking user
	KeyTargetUser = "target_user" // user the command runs as
	KeyHost       = "host"
	KeyPrincipal  = "principal" // Kerberos principal (user@REALM)

	// ========================================================================
	// Authentication
	// ========================================================================
	KeyEventID        = "event_id"
	KeyMethod         = "method"    // backend name
	KeyResult         = "result"    // auth.Result string
	KeyTries          = "tries"     // tries used so far
	KeyMaxTries       = "max_tries" // configured try limit
	KeyBadPassword    = "bad_password"
	KeyInterrupted    = "interrupted"
	KeyStandalone     = "standalone"
	KeyForce          = "force"
	KeyExempt         = "exempt"
	KeyEnabledMethods = "enabled_methods"

	// ========================================================================
	// Resources
	// ========================================================================
	KeyPath    = "path"
	KeyCommand = "command"
	KeyExit    = "exit_code"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOperation  = "operation"
)

// redactedValue replaces the value of any secret-bearing attribute.
const redactedValue = "[REDACTED]"

// secretKeys are attribute key fragments that never reach the log sink.
var secretKeys = []string{"password", "passwd", "secret", "credential", "passcode", "otp_code"}

// IsSecretKey reports whether an attribute key names secret material.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// redactAttr is installed as slog.HandlerOptions.ReplaceAttr.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == KeyBadPassword {
		return a
	}
	if IsSecretKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// ============================================================================
// Typed attribute helpers
// ============================================================================

// User returns a slog.Attr for the invoking user.
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// Method returns a slog.Attr for a backend name.
func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

// Result returns a slog.Attr for an authentication result.
func Result(r string) slog.Attr {
	return slog.String(KeyResult, r)
}

// Tries returns a slog.Attr for the number of tries used.
func Tries(n uint32) slog.Attr {
	return slog.Uint64(KeyTries, uint64(n))
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
