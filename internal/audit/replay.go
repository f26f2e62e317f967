package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ReplayFilter selects entries for a replay. Zero fields match everything.
type ReplayFilter struct {
	SessionID string
	Op        string
	Decision  string
	From      time.Time
	To        time.Time
	// Last keeps only the newest N matching entries.
	Last int
}

// ReplaySummary counts decisions across the replayed entries.
type ReplaySummary struct {
	Total          int    `json:"total"`
	AllowCount     int    `json:"allow_count"`
	DenyCount      int    `json:"deny_count"`
	ErrorCount     int    `json:"error_count"`
	TimeoutCount   int    `json:"timeout_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	SessionID string        `json:"session_id,omitempty"`
	Entries   []Entry       `json:"entries"`
	Summary   ReplaySummary `json:"summary"`
}

// Replay reads the log at path and returns the entries matching filter.
// Malformed lines are skipped; use Verify to detect them.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{SessionID: filter.SessionID}

	scanner := newScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if filter.matches(entry) {
			result.Entries = append(result.Entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	if filter.Last > 0 && len(result.Entries) > filter.Last {
		result.Entries = result.Entries[len(result.Entries)-filter.Last:]
	}
	for _, e := range result.Entries {
		updateSummary(&result.Summary, e)
	}
	return result, nil
}

func (f ReplayFilter) matches(e Entry) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Op != "" && e.Op != f.Op {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func updateSummary(s *ReplaySummary, e Entry) {
	s.Total++
	switch e.Decision {
	case DecisionAllow:
		s.AllowCount++
	case DecisionDeny:
		s.DenyCount++
	case DecisionError:
		s.ErrorCount++
	}
	if e.TimedOut {
		s.TimeoutCount++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
