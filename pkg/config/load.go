package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// DITTOAUTH_AUTH_MAX_TRIES.
	EnvPrefix = "DITTOAUTH"

	// EnvConfigFile names a configuration file when --config is not given.
	EnvConfigFile = "DITTOAUTH_CONFIG"

	// SystemConfigPath is the host-wide file consulted after the user's own.
	SystemConfigPath = "/etc/dittoauth/config.yaml"

	configFileName = "config.yaml"
)

// Candidates lists the files Load considers for an empty path, in order:
// $DITTOAUTH_CONFIG, the per-user file, then SystemConfigPath.
func Candidates() []string {
	var paths []string
	if p := os.Getenv(EnvConfigFile); p != "" {
		paths = append(paths, p)
	}
	return append(paths, GetDefaultConfigPath(), SystemConfigPath)
}

// Locate resolves the file to load. An explicit path is returned as is;
// otherwise the first existing candidate wins. ok is false when nothing
// exists.
func Locate(explicit string) (path string, ok bool) {
	if explicit != "" {
		_, err := os.Stat(explicit)
		return explicit, err == nil
	}
	for _, p := range Candidates() {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load reads the configuration at path, or the first candidate file when
// path is empty, and validates it. Without any file the defaults are
// returned.
func Load(path string) (*Config, error) {
	found, ok := Locate(path)
	if !ok {
		return GetDefaultConfig(), nil
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(found)
	if filepath.Ext(found) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", found, err)
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", found, err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for commands that are meaningless on defaults alone: a
// missing file is an error that says how to create one.
func MustLoad(path string) (*Config, error) {
	found, ok := Locate(path)
	if !ok {
		if path != "" {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Create it with:\n  dittoauth init --config %s", path, path)
		}
		return nil, fmt.Errorf("no configuration file found (looked in %s)\n\n"+
			"Create one with:\n  dittoauth init\n"+
			"or pass --config /path/to/config.yaml", strings.Join(Candidates(), ", "))
	}

	cfg, err := Load(found)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, replacing path atomically. The file is
// owner-only since the directory section may carry a database password.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// GetConfigDir is the per-user configuration directory,
// $XDG_CONFIG_HOME/dittoauth or ~/.config/dittoauth. It falls back to "."
// when no home directory is known.
func GetConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "dittoauth")
}

// GetDefaultConfigPath is the per-user configuration file.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), configFileName)
}
