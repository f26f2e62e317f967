package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/shellgate/internal/cmdguard"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [flags] -- <command> [args...]",
	Short: "Check whether a command would be accepted (dry-run)",
	Long:  "Runs the validator only and prints the decision as JSON. Nothing is executed.\nExit code 77 indicates a rejection.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

// checkResult is the JSON printed by check.
type checkResult struct {
	Accepted bool     `json:"accepted"`
	Command  string   `json:"command,omitempty"`
	Args     []string `json:"args,omitempty"`
	Rule     string   `json:"rule,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, deny, err := loadPolicy(cfg)
	if err != nil {
		return err
	}

	o := cmdguard.NewValidator(table, deny).Validate(args[0], args[1:])
	res := checkResult{Accepted: o.Accepted, Command: o.Command, Args: o.Args}
	if !o.Accepted {
		res.Rule = o.Rejection.Rule
		res.Reason = o.Rejection.Reason
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !o.Accepted {
		return &exitError{code: ExitBlocked, silent: true, err: o.Err()}
	}
	return nil
}
