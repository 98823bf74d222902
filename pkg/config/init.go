package config

import (
	"fmt"
	"os"
)

// sampleConfig is written by InitConfig. Every commented key shows its default.
const sampleConfig = `# dittoauth Configuration File
#
# Values may be overridden with DITTOAUTH_* environment variables,
# e.g. DITTOAUTH_AUTH_MAX_TRIES=5 or DITTOAUTH_AUTH_METHODS=otp,passwd.

logging:
  level: WARN     # DEBUG, INFO, WARN, ERROR
  format: text    # text, json
  output: stderr  # stdout, stderr or a file path

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0

metrics:
  enabled: false
  # textfile: /var/lib/node_exporter/textfile/dittoauth.prom

auth:
  # Methods are tried together on every password. Standalone methods
  # (otp) prompt on their own and cannot be mixed with the others.
  methods:
    - passwd
  max_tries: 3
  prompt: "[dittoauth] password for %p: "
  bad_password_message: "Sorry, try again."
  exempt_users: []
  exempt_groups: []

  passwd:
    # file: ~/.config/dittoauth/passwd

  kerberos:
    # realm: EXAMPLE.COM
    krb5_conf: /etc/krb5.conf
    # keytab_path: /etc/krb5.keytab
    # service_principal: host/build01.example.com
    max_clock_skew: 5m

  directory:
    type: sqlite
    # sqlite:
    #   path: ~/.config/dittoauth/directory.db
    # postgres:
    #   host: localhost
    #   port: 5432
    #   database: dittoauth
    #   user: dittoauth
    #   password: ""
    #   sslmode: disable
    lockout_threshold: 5

  otp:
    # secrets_file: ~/.config/dittoauth/otp.json
    digits: 6
    period: 30
    skew: 1
    issuer: dittoauth

timestamp:
  # dir: $XDG_RUNTIME_DIR/dittoauth/ts
  timeout: 5m   # negative disables the cache
`

// InitConfig writes a sample configuration to the default location.
// Returns the path of the written file.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
// An existing file is only replaced when force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	return writeFileAtomic(path, []byte(sampleConfig))
}
