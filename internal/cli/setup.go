package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/audit"
	"github.com/ppiankov/shellgate/internal/config"
	"github.com/ppiankov/shellgate/internal/denylist"
	"github.com/ppiankov/shellgate/internal/gateway"
	"github.com/ppiankov/shellgate/internal/logging"
)

// loadConfig layers the persistent flags over the config file and
// environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if rootDir != "" {
		cfg.Root = rootDir
	}
	if allowEscape {
		cfg.AllowEscape = true
	}
	if allowlistArg != "" {
		cfg.Allowlist = allowlistArg
	}
	if denylistArg != "" {
		cfg.Denylist = denylistArg
	}
	if auditLogArg != "" {
		cfg.AuditLog = auditLogArg
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

func loadPolicy(cfg *config.Config) (*allowlist.Table, *denylist.Denylist, error) {
	table, err := allowlist.Load(cfg.Allowlist)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load allowlist: %w", err)
	}
	deny, err := denylist.Load(cfg.Denylist)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load denylist: %w", err)
	}
	return table, deny, nil
}

// buildGateway loads policy and opens the audit log. The caller closes the
// returned log, which is nil when auditing is off.
func buildGateway(cfg *config.Config, log *slog.Logger) (*gateway.Gateway, *audit.Log, error) {
	table, deny, err := loadPolicy(cfg)
	if err != nil {
		return nil, nil, err
	}

	var auditLog *audit.Log
	if cfg.AuditLog != "" {
		auditLog, err = audit.Open(cfg.AuditLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	gw, err := gateway.New(gateway.Config{
		Root:           cfg.Root,
		AllowEscape:    cfg.AllowEscape,
		Table:          table,
		Denylist:       deny,
		DefaultTimeout: cfg.DefaultTimeout,
		MaxOutput:      cfg.MaxOutputBytes,
		RedactOutput:   cfg.RedactOutput,
		Audit:          auditLog,
		Logger:         log,
	})
	if err != nil {
		auditLog.Close()
		return nil, nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	return gw, auditLog, nil
}
