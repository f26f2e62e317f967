package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var replayBase = time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// writeReplayLog creates a log with a known mix of sessions and decisions.
func writeReplayLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	at := func(s int) string { return replayBase.Add(time.Duration(s) * time.Second).Format(TimestampFormat) }

	entries := []Entry{
		{Timestamp: at(0), SessionID: "s-aaa", Op: OpExec, Command: "ls", Args: []string{"-la"}, Decision: DecisionAllow, ExitCode: intPtr(0)},
		{Timestamp: at(2), SessionID: "s-aaa", Op: OpCd, Path: "src", Decision: DecisionAllow},
		{Timestamp: at(4), SessionID: "s-bbb", Op: OpExec, Command: "pwd", Decision: DecisionAllow, ExitCode: intPtr(0)},
		{Timestamp: at(6), SessionID: "s-aaa", Op: OpExec, Command: "rm", Args: []string{"-rf", "/"}, Decision: DecisionDeny, Rule: "not-allowed"},
		{Timestamp: at(8), SessionID: "s-aaa", Op: OpCd, Path: "../../../etc", Decision: DecisionDeny, Rule: "outside boundary"},
		{Timestamp: at(10), SessionID: "s-aaa", Op: OpExec, Command: "find", Args: []string{"/"}, Decision: DecisionAllow, ExitCode: intPtr(124), TimedOut: true},
	}
	for _, e := range entries {
		require.NoError(t, log.Record(e))
	}
	return path
}

func TestReplayFiltersBySession(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{SessionID: "s-aaa"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 5)
	for _, e := range result.Entries {
		assert.Equal(t, "s-aaa", e.SessionID)
	}
}

func TestReplayAllSessions(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Summary.Total)
}

func TestReplayFiltersByOpAndDecision(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{Op: OpCd, Decision: DecisionDeny})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "../../../etc", result.Entries[0].Path)
}

func TestReplayTimeRange(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{
		From: replayBase.Add(3 * time.Second),
		To:   replayBase.Add(7 * time.Second),
	})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
}

func TestReplayLast(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{Last: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "find", result.Entries[1].Command, "newest entry last")
	assert.Equal(t, 2, result.Summary.Total, "summary covers the kept entries")
}

func TestReplaySummary(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{SessionID: "s-aaa"})
	require.NoError(t, err)
	s := result.Summary
	assert.Equal(t, 3, s.AllowCount)
	assert.Equal(t, 2, s.DenyCount)
	assert.Equal(t, 1, s.TimeoutCount)
	assert.Equal(t, replayBase.Format(TimestampFormat), s.FirstTimestamp)
}

func TestReplayMissingFile(t *testing.T) {
	_, err := Replay(filepath.Join(t.TempDir(), "nope.jsonl"), ReplayFilter{})
	assert.Error(t, err)
}
