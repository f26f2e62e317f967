package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExitBlocked is the exit status for a request refused by policy or by the
// directory boundary.
const ExitBlocked = 77

var (
	configPath   string
	logLevel     string
	logFormat    string
	rootDir      string
	allowEscape  bool
	allowlistArg string
	denylistArg  string
	auditLogArg  string
)

var rootCmd = &cobra.Command{
	Use:   "shellgate",
	Short: "Guarded command execution for AI agents",
	Long: "Validates every command against an allow-list and a deny-list, keeps the working\n" +
		"directory inside a boundary root, and runs what passes with a minimal environment\n" +
		"and a hard timeout. Serves the gateway to agents over MCP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config YAML (default: ~/.shellgate/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&rootDir, "root", "", "Boundary root directory (default: system temp dir)")
	pf.BoolVar(&allowEscape, "allow-escape", false, "Disable boundary enforcement entirely")
	pf.StringVar(&allowlistArg, "allowlist", "", "Path to allow-list YAML (default: ~/.shellgate/allowlist.yaml)")
	pf.StringVar(&denylistArg, "denylist", "", "Path to deny-list YAML (default: ~/.shellgate/denylist.yaml)")
	pf.StringVar(&auditLogArg, "audit-log", "", "Path to hash-chained audit log (JSONL)")
}

// exitError carries a process exit status out of a RunE. Its message has
// already been printed when silent is set.
type exitError struct {
	code   int
	silent bool
	err    error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.silent {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(ee.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
