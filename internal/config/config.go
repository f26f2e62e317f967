// Package config loads the gateway's startup configuration. Values are
// layered: built-in defaults, then the YAML file, then SHELLGATE_*
// environment variables. Command-line flags are applied last by the CLI.
// The result is read once at process start and never reloaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/shellgate/internal/logging"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvRoot        = "SHELLGATE_ROOT"
	EnvAllowEscape = "SHELLGATE_ALLOW_ESCAPE"
	EnvAllowlist   = "SHELLGATE_ALLOWLIST"
	EnvDenylist    = "SHELLGATE_DENYLIST"
	EnvAuditLog    = "SHELLGATE_AUDIT_LOG"
	EnvLogLevel    = "SHELLGATE_LOG_LEVEL"
	EnvLogFormat   = "SHELLGATE_LOG_FORMAT"
)

// Config is the gateway configuration.
type Config struct {
	// Root is the boundary directory. Defaults to the system temp dir.
	Root string `yaml:"root"`
	// AllowEscape disables boundary enforcement entirely.
	AllowEscape bool `yaml:"allow_escape"`

	Allowlist string `yaml:"allowlist"`
	Denylist  string `yaml:"denylist"`

	// AuditLog is the hash-chained JSONL log path. Empty disables auditing.
	AuditLog string `yaml:"audit_log"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// DefaultTimeout applies when a request carries none. Always clamped
	// to the execution ceiling.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxOutputBytes int           `yaml:"max_output_bytes"`
	RedactOutput   bool          `yaml:"redact_output"`

	// ExitOnPolicyChange stops the server when a policy file changes so a
	// supervisor restarts it with the new policy.
	ExitOnPolicyChange bool `yaml:"exit_on_policy_change"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root:           os.TempDir(),
		LogLevel:       "info",
		LogFormat:      logging.FormatText,
		MaxOutputBytes: 1 << 20,
		RedactOutput:   true,
	}
}

// Dir returns ~/.shellgate, or "" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shellgate")
}

// DefaultPath returns ~/.shellgate/config.yaml.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. Empty path means DefaultPath. A missing file is not an
// error; invalid YAML is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SHELLGATE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvRoot, &c.Root},
		{EnvAllowlist, &c.Allowlist},
		{EnvDenylist, &c.Denylist},
		{EnvAuditLog, &c.AuditLog},
		{EnvLogLevel, &c.LogLevel},
		{EnvLogFormat, &c.LogFormat},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup(EnvAllowEscape); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAllowEscape, err)
		}
		c.AllowEscape = b
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Root == "" && !c.AllowEscape {
		return errors.New("root must be set unless allow_escape is enabled")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("unknown log format %q (valid: text, json)", c.LogFormat)
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("default_timeout must not be negative, got %s", c.DefaultTimeout)
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("max_output_bytes must not be negative, got %d", c.MaxOutputBytes)
	}
	return nil
}

// PolicyFiles returns the allow-list and deny-list files that exist on
// disk, using the ~/.shellgate defaults for unset paths.
func (c *Config) PolicyFiles() []string {
	allow, deny := c.Allowlist, c.Denylist
	if dir := Dir(); dir != "" {
		if allow == "" {
			allow = filepath.Join(dir, "allowlist.yaml")
		}
		if deny == "" {
			deny = filepath.Join(dir, "denylist.yaml")
		}
	}

	var files []string
	for _, p := range []string{allow, deny} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	return files
}
