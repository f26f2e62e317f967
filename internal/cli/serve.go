package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/config"
	"github.com/ppiankov/shellgate/internal/denylist"
	"github.com/ppiankov/shellgate/internal/mcp"
	"github.com/ppiankov/shellgate/internal/watch"
)

var (
	serveHTTP         string
	serveExitOnChange bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "Serve streamable HTTP on this address instead of stdio (e.g. 127.0.0.1:8931)")
	serveCmd.Flags().BoolVar(&serveExitOnChange, "exit-on-policy-change", false, "Shut down when a policy file changes so a supervisor restarts with the new policy")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for agent integration",
	Long: "Runs shellgate as an MCP (Model Context Protocol) server over stdio, or over\n" +
		"streamable HTTP with --http. Exposes execute_command, change_directory,\n" +
		"get_current_directory, list_allowed_commands, check_command and session_info.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveExitOnChange {
		cfg.ExitOnPolicyChange = true
	}
	log := newLogger(cfg)

	gw, auditLog, err := buildGateway(cfg, log)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	srv := mcp.New(gw, version, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
			cancel()
		case <-ctx.Done():
		}
	}()

	startPolicyWatch(ctx, cfg, log, cancel)

	if serveHTTP != "" {
		fmt.Fprintf(os.Stderr, "shellgate MCP server listening on http://%s/mcp\n", serveHTTP)
	} else {
		fmt.Fprintln(os.Stderr, "shellgate MCP server running on stdio")
	}
	if cfg.AllowEscape {
		fmt.Fprintln(os.Stderr, "WARNING: boundary enforcement disabled (--allow-escape)")
	} else {
		fmt.Fprintf(os.Stderr, "Boundary: %s\n", gw.Root())
	}
	if auditLog != nil {
		fmt.Fprintf(os.Stderr, "Audit log: %s\n", auditLog.Path())
	}
	fmt.Fprintln(os.Stderr)

	if serveHTTP != "" {
		err = srv.RunHTTP(ctx, serveHTTP)
	} else {
		err = srv.Run(ctx)
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Session summary:")
	out, _ := json.MarshalIndent(gw.Session(), "", "  ")
	fmt.Fprintln(os.Stderr, string(out))

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// startPolicyWatch reports edits to the policy and config files. The
// running gateway keeps its startup policy either way.
func startPolicyWatch(ctx context.Context, cfg *config.Config, log *slog.Logger, stop context.CancelFunc) {
	paths := append(cfg.PolicyFiles(), configFile())
	w, err := watch.New(paths, func(path string) {
		if err := checkPolicyFiles(cfg); err != nil {
			log.Error("policy file changed but does not load; keeping current policy", "path", path, "error", err)
			return
		}
		if cfg.ExitOnPolicyChange {
			log.Warn("policy file changed; shutting down for restart", "path", path)
			stop()
			return
		}
		log.Warn("policy file changed; restart to apply", "path", path)
	}, log)
	if err != nil {
		log.Warn("policy watch disabled", "error", err)
		return
	}
	log.Debug("watching policy files", "paths", w.Paths())
	go w.Run(ctx)
}

func checkPolicyFiles(cfg *config.Config) error {
	if _, err := allowlist.Load(cfg.Allowlist); err != nil {
		return err
	}
	if _, err := denylist.Load(cfg.Denylist); err != nil {
		return err
	}
	if _, err := config.Load(configPath); err != nil {
		return err
	}
	return nil
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}
