package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/shellgate/internal/audit"
)

var (
	replayLog      string
	replayFrom     string
	replayTo       string
	replayOp       string
	replayDecision string
	replayLast     int
	replayFormat   string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayLog, "log", "l", "", "Path to audit log (required)")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayOp, "op", "", "Only entries for this operation (start|exec|cd)")
	replayCmd.Flags().StringVar(&replayDecision, "decision", "", "Only entries with this decision (allow|deny|error)")
	replayCmd.Flags().IntVar(&replayLast, "last", 0, "Only the newest N matching entries")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
	_ = replayCmd.MarkFlagRequired("log")
}

var replayCmd = &cobra.Command{
	Use:   "replay [session-id]",
	Short: "Replay a session from the audit log",
	Long:  "Reads the audit log, filters by session ID and optional time range,\nand renders a human-readable decision timeline with summary.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	filter := audit.ReplayFilter{
		Op:       replayOp,
		Decision: replayDecision,
		Last:     replayLast,
	}
	if len(args) == 1 {
		filter.SessionID = args[0]
	}

	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}

	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}

	result, err := audit.Replay(replayLog, filter)
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	case "text", "":
		fmt.Fprint(cmd.OutOrStdout(), audit.FormatTimeline(result))
	default:
		return fmt.Errorf("unknown format %q: use text or json", replayFormat)
	}

	return nil
}
