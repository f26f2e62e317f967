package audit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a text timeline, one line per
// entry.
func FormatTimeline(result *ReplayResult) string {
	label := result.SessionID
	if label == "" {
		label = "all sessions"
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Session: %s | No entries found.\n", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s | %s–%s UTC\n", label,
		formatDateRange(result.Summary.FirstTimestamp), formatTimeOnly(result.Summary.LastTimestamp))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		status := strings.ToUpper(e.Decision)
		switch {
		case e.TimedOut:
			status += " timeout"
		case e.ExitCode != nil:
			status += " exit=" + strconv.Itoa(*e.ExitCode)
		case e.Rule != "":
			status += " " + e.Rule
		}
		fmt.Fprintf(&b, "%-10s %-4s %-24s %s\n",
			formatTimeOnly(e.Timestamp), e.Op, truncate(status, 24), truncate(e.Subject(), 60))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.DenyCount > 0 {
		parts = append(parts, fmt.Sprintf("%d deny", s.DenyCount))
	}
	if s.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d error", s.ErrorCount))
	}
	if s.TimeoutCount > 0 {
		parts = append(parts, fmt.Sprintf("%d timed out", s.TimeoutCount))
	}
	return fmt.Sprintf("Summary: %d entries | %s\n", s.Total, strings.Join(parts, ", "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
