package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected default log level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Auth(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if len(cfg.Auth.Methods) != 1 || cfg.Auth.Methods[0] != MethodPasswd {
		t.Errorf("Expected default methods [passwd], got %v", cfg.Auth.Methods)
	}
	if cfg.Auth.MaxTries != 3 {
		t.Errorf("Expected default max_tries 3, got %d", cfg.Auth.MaxTries)
	}
	if cfg.Auth.OTP.Digits != 6 || cfg.Auth.OTP.Period != 30 || cfg.Auth.OTP.Skew != 1 {
		t.Errorf("Unexpected otp defaults: %+v", cfg.Auth.OTP)
	}
	if cfg.Auth.Kerberos.MaxClockSkew != 5*time.Minute {
		t.Errorf("Expected default clock skew 5m, got %v", cfg.Auth.Kerberos.MaxClockSkew)
	}
	if filepath.Base(cfg.Auth.Directory.SQLite.Path) != "directory.db" {
		t.Errorf("Expected sqlite path ending in directory.db, got %q", cfg.Auth.Directory.SQLite.Path)
	}
	if cfg.Auth.Directory.LockoutThreshold != 5 {
		t.Errorf("Expected default lockout threshold 5, got %d", cfg.Auth.Directory.LockoutThreshold)
	}
}

func TestApplyDefaults_NormalizesMethods(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{Methods: []string{" OTP", "Passwd "}}}
	ApplyDefaults(cfg)

	if cfg.Auth.Methods[0] != "otp" || cfg.Auth.Methods[1] != "passwd" {
		t.Errorf("Expected normalized methods [otp passwd], got %v", cfg.Auth.Methods)
	}
}

func TestApplyDefaults_Postgres(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{Directory: DirectoryConfig{Type: DatabaseTypePostgres}}}
	ApplyDefaults(cfg)

	pg := cfg.Auth.Directory.Postgres
	if pg.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", pg.Port)
	}
	if pg.SSLMode != "disable" {
		t.Errorf("Expected default sslmode 'disable', got %q", pg.SSLMode)
	}
	if cfg.Auth.Directory.SQLite.Path != "" {
		t.Errorf("Expected no sqlite path for postgres, got %q", cfg.Auth.Directory.SQLite.Path)
	}
}

func TestApplyDefaults_Timestamp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Timestamp.Dir != filepath.Join("/run/user/1000", "dittoauth", "ts") {
		t.Errorf("Unexpected timestamp dir %q", cfg.Timestamp.Dir)
	}

	cfg = &Config{Timestamp: TimestampConfig{Timeout: -1}}
	ApplyDefaults(cfg)
	if cfg.Timestamp.Timeout != -1 {
		t.Errorf("Expected negative timeout to be preserved, got %v", cfg.Timestamp.Timeout)
	}
}

func TestApplyDefaults_MetricsTextfile(t *testing.T) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)

	if filepath.Ext(cfg.Metrics.Textfile) != ".prom" {
		t.Errorf("Expected a .prom textfile, got %q", cfg.Metrics.Textfile)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/dittoauth.log",
		},
		Auth: AuthConfig{
			Methods:  []string{MethodKerberos},
			MaxTries: 1,
			Prompt:   "Password: ",
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "/var/log/dittoauth.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Auth.MaxTries != 1 {
		t.Errorf("Expected explicit max_tries 1 to be preserved, got %d", cfg.Auth.MaxTries)
	}
	if cfg.Auth.Prompt != "Password: " {
		t.Errorf("Expected explicit prompt to be preserved, got %q", cfg.Auth.Prompt)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}
