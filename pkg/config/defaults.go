package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default values that other packages reuse.
const (
	DefaultMaxTries           = 3
	DefaultPrompt             = "[dittoauth] password for %p: "
	DefaultBadPasswordMessage = "Sorry, try again."
	DefaultTimestampTimeout   = 5 * time.Minute
	DefaultKrb5Conf           = "/etc/krb5.conf"
	DefaultMaxClockSkew       = 5 * time.Minute
	DefaultLockoutThreshold   = 5
	DefaultOTPDigits          = 6
	DefaultOTPPeriod          = 30
	DefaultOTPSkew            = 1
	DefaultOTPIssuer          = "dittoauth"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyAuthDefaults(&cfg.Auth)
	applyTimestampDefaults(&cfg.Timestamp)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
// Logs go to stderr at WARN so they never mix with the wrapped command's output.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "WARN"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Textfile == "" {
		cfg.Textfile = filepath.Join(getStateDir(), "dittoauth.prom")
	}
}

// applyAuthDefaults sets method selection, retry and per-method defaults.
func applyAuthDefaults(cfg *AuthConfig) {
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{MethodPasswd}
	}
	for i, m := range cfg.Methods {
		cfg.Methods[i] = strings.ToLower(strings.TrimSpace(m))
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = DefaultMaxTries
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.BadPasswordMessage == "" {
		cfg.BadPasswordMessage = DefaultBadPasswordMessage
	}

	if cfg.Passwd.File == "" {
		cfg.Passwd.File = filepath.Join(GetConfigDir(), "passwd")
	}

	if cfg.Kerberos.Krb5Conf == "" {
		cfg.Kerberos.Krb5Conf = DefaultKrb5Conf
	}
	if cfg.Kerberos.MaxClockSkew == 0 {
		cfg.Kerberos.MaxClockSkew = DefaultMaxClockSkew
	}

	applyDirectoryDefaults(&cfg.Directory)

	if cfg.OTP.SecretsFile == "" {
		cfg.OTP.SecretsFile = filepath.Join(GetConfigDir(), "otp.json")
	}
	if cfg.OTP.Digits == 0 {
		cfg.OTP.Digits = DefaultOTPDigits
	}
	if cfg.OTP.Period == 0 {
		cfg.OTP.Period = DefaultOTPPeriod
	}
	if cfg.OTP.Skew == 0 {
		cfg.OTP.Skew = DefaultOTPSkew
	}
	if cfg.OTP.Issuer == "" {
		cfg.OTP.Issuer = DefaultOTPIssuer
	}
}

// applyDirectoryDefaults sets directory database defaults.
func applyDirectoryDefaults(cfg *DirectoryConfig) {
	if cfg.Type == "" {
		cfg.Type = DatabaseTypeSQLite
	}

	if cfg.Type == DatabaseTypeSQLite && cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(GetConfigDir(), "directory.db")
	}

	if cfg.Type == DatabaseTypePostgres {
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
		if cfg.Postgres.MaxOpenConns == 0 {
			cfg.Postgres.MaxOpenConns = 10
		}
		if cfg.Postgres.MaxIdleConns == 0 {
			cfg.Postgres.MaxIdleConns = 2
		}
	}

	if cfg.LockoutThreshold == 0 {
		cfg.LockoutThreshold = DefaultLockoutThreshold
	}
}

// applyTimestampDefaults sets timestamp cache defaults.
func applyTimestampDefaults(cfg *TimestampConfig) {
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(getStateDir(), "ts")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimestampTimeout
	}
}

// getStateDir returns the per-user runtime directory.
//
// Uses XDG_RUNTIME_DIR if set, otherwise a uid-scoped directory under the
// system temp dir.
func getStateDir() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "dittoauth")
	}
	return filepath.Join(os.TempDir(), "dittoauth-"+strconv.Itoa(os.Getuid()))
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Auth: AuthConfig{
			Methods: []string{MethodPasswd},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
