package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/shellgate/internal/boundary"
	"github.com/ppiankov/shellgate/internal/cmdguard"
	"github.com/ppiankov/shellgate/internal/gateway"
)

var (
	execCwd     string
	execTimeout time.Duration
	execEnv     []string
	execJSON    bool
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execCwd, "cwd", "", "Working directory, relative to the session directory")
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 0, "Timeout (capped at 10s)")
	execCmd.Flags().StringArrayVar(&execEnv, "env", nil, "Extra environment variable K=V (repeatable)")
	execCmd.Flags().BoolVar(&execJSON, "json", false, "Print the result as JSON")
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Execute one command through the gateway",
	Long: "Validates the command against the allow-list and deny-list and runs it inside the\n" +
		"boundary root. Rejected commands are not executed. Exit code 77 indicates a rejection;\n" +
		"otherwise the command's own exit code is returned.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	env, err := parseEnv(execEnv)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gw, auditLog, err := buildGateway(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := gw.ExecuteCommand(ctx, args[0], args[1:], gateway.Options{
		Cwd:     execCwd,
		Timeout: execTimeout,
		Env:     env,
	})
	if err != nil && res == nil {
		if printRejection(cmd, err) {
			return &exitError{code: ExitBlocked, silent: true, err: err}
		}
		return err
	}

	if execJSON {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
		fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
	}

	if err != nil {
		return &exitError{code: res.ExitCode, err: err}
	}
	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode, silent: true}
	}
	return nil
}

// printRejection writes policy and boundary rejections to stderr as JSON.
// It reports false for any other error.
func printRejection(cmd *cobra.Command, err error) bool {
	resp := map[string]any{"rejected": true, "reason": err.Error()}

	var pr *cmdguard.PolicyRejection
	var br *boundary.Rejection
	switch {
	case errors.As(err, &pr):
		resp["kind"] = "policy"
		resp["rule"] = pr.Rule
		resp["command"] = pr.Command
	case errors.As(err, &br):
		resp["kind"] = "boundary"
		resp["rule"] = string(br.Kind)
		resp["path"] = br.Requested
	default:
		return false
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Fprintln(cmd.ErrOrStderr(), string(out))
	return true
}

func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env %q: expected KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}
