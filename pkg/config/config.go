package config

import (
	"fmt"
	"time"
)

// Config is the dittoauth configuration file. Values come from, highest
// first: DITTOAUTH_* environment variables, the file, then ApplyDefaults.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`

	// Auth selects the method chain and configures each method.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Timestamp configures the per-user authentication timestamp cache.
	Timestamp TimestampConfig `mapstructure:"timestamp" yaml:"timestamp"`
}

// LoggingConfig controls where audit and diagnostic lines go. Levels are
// matched case-insensitively and normalized to upper case.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr or a file path. Keep it off stdout when
	// wrapping commands whose output is piped.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig exports each authentication phase as an OTLP span.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"` // host:port
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures Prometheus metrics.
// dittoauth exits after every request, so metrics are written to a
// node_exporter textfile collector file instead of being served.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is the .prom file rewritten on exit
	Textfile string `mapstructure:"textfile" validate:"required_if=Enabled true" yaml:"textfile"`
}

// Method names accepted in AuthConfig.Methods.
const (
	MethodPasswd    = "passwd"
	MethodKerberos  = "kerberos"
	MethodDirectory = "directory"
	MethodOTP       = "otp"
)

// AuthConfig selects the authentication methods and the retry policy.
type AuthConfig struct {
	// Methods lists the enabled methods. Standalone methods (otp) are
	// always placed before shared ones; relative order is kept otherwise.
	Methods []string `mapstructure:"methods" validate:"required,min=1,unique,dive,oneof=passwd kerberos directory otp" yaml:"methods"`

	// MaxTries bounds password tries per verification
	// Default: 3
	MaxTries uint32 `mapstructure:"max_tries" validate:"gte=1,lte=100" yaml:"max_tries"`

	// Prompt is the password prompt template (%u, %U, %h, %H, %p, %%)
	Prompt string `mapstructure:"prompt" yaml:"prompt"`

	// BadPasswordMessage is printed before every retry
	BadPasswordMessage string `mapstructure:"bad_password_message" yaml:"bad_password_message"`

	// ExemptUsers and ExemptGroups waive waivable approval checks
	// such as password expiry
	ExemptUsers  []string `mapstructure:"exempt_users" yaml:"exempt_users"`
	ExemptGroups []string `mapstructure:"exempt_groups" yaml:"exempt_groups"`

	Passwd    PasswdConfig    `mapstructure:"passwd" yaml:"passwd"`
	Kerberos  KerberosConfig  `mapstructure:"kerberos" yaml:"kerberos"`
	Directory DirectoryConfig `mapstructure:"directory" yaml:"directory"`
	OTP       OTPConfig       `mapstructure:"otp" yaml:"otp"`
}

// PasswdConfig configures the bcrypt password file method.
type PasswdConfig struct {
	// File holds "user:bcrypt-hash[:YYYY-MM-DD]" lines
	File string `mapstructure:"file" yaml:"file"`
}

// KerberosConfig configures the Kerberos method.
//
// The password is checked with an AS exchange against the KDC. When a
// keytab and service principal are configured, the obtained TGT is further
// verified by requesting a service ticket and decrypting it with the keytab,
// which defeats a spoofed KDC.
//
// Environment variable overrides:
//
//	DITTOAUTH_KERBEROS_KEYTAB overrides KeytabPath
//	DITTOAUTH_KERBEROS_PRINCIPAL overrides ServicePrincipal
//	DITTOAUTH_KERBEROS_KRB5CONF overrides Krb5Conf
type KerberosConfig struct {
	// Realm overrides the default realm from krb5.conf
	Realm string `mapstructure:"realm" yaml:"realm"`

	// Krb5Conf is the path to krb5.conf
	// Default: /etc/krb5.conf
	Krb5Conf string `mapstructure:"krb5_conf" yaml:"krb5_conf"`

	// KeytabPath is the host keytab used to verify TGTs. Optional.
	KeytabPath string `mapstructure:"keytab_path" yaml:"keytab_path"`

	// ServicePrincipal is the SPN whose key is in the keytab,
	// e.g. "host/build01.example.com"
	ServicePrincipal string `mapstructure:"service_principal" yaml:"service_principal"`

	// MaxClockSkew is the tolerated clock difference with the KDC
	// Default: 5m
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew" yaml:"max_clock_skew"`
}

// DatabaseType defines the supported directory databases.
type DatabaseType string

const (
	// DatabaseTypeSQLite uses a local SQLite file (default).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres uses a shared PostgreSQL database.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: $XDG_CONFIG_HOME/dittoauth/directory.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full" yaml:"sslmode"`
	SSLRootCert  string `mapstructure:"sslrootcert" yaml:"sslrootcert"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)

	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	if c.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", c.SSLRootCert)
	}

	return dsn
}

// DirectoryConfig configures the SQL account directory method.
type DirectoryConfig struct {
	Type     DatabaseType   `mapstructure:"type" validate:"omitempty,oneof=sqlite postgres" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`

	// LockoutThreshold locks an account after this many consecutive
	// failed verifications. 0 disables lockout.
	// Default: 5
	LockoutThreshold int `mapstructure:"lockout_threshold" validate:"gte=0" yaml:"lockout_threshold"`
}

// OTPConfig configures the standalone TOTP method.
type OTPConfig struct {
	// SecretsFile is the 0600 JSON file mapping users to TOTP secrets
	// Default: $XDG_CONFIG_HOME/dittoauth/otp.json
	SecretsFile string `mapstructure:"secrets_file" yaml:"secrets_file"`

	// Digits is the code length (6 or 8)
	Digits int `mapstructure:"digits" validate:"omitempty,oneof=6 8" yaml:"digits"`

	// Period is the code lifetime in seconds
	Period uint `mapstructure:"period" validate:"omitempty,gte=15,lte=300" yaml:"period"`

	// Skew is the number of periods accepted on either side of now
	Skew uint `mapstructure:"skew" validate:"lte=3" yaml:"skew"`

	// Issuer is shown by authenticator apps
	Issuer string `mapstructure:"issuer" yaml:"issuer"`
}

// TimestampConfig configures the authentication timestamp cache.
type TimestampConfig struct {
	// Dir holds the per-user lock files and the timestamp database
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Timeout is how long a successful authentication is remembered.
	// A negative value disables the cache.
	// Default: 5m
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}
