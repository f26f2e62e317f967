package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeline(t *testing.T) {
	path := writeReplayLog(t)
	result, err := Replay(path, ReplayFilter{SessionID: "s-aaa"})
	require.NoError(t, err)

	out := FormatTimeline(result)
	for _, want := range []string{
		"Session: s-aaa",
		"ALLOW exit=0",
		"DENY not-allowed",
		"rm -rf /",
		"../../../etc",
		"ALLOW timeout",
		"Summary: 5 entries | 3 allow, 2 deny, 1 timed out",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	assert.Contains(t, FormatTimeline(&ReplayResult{}), "No entries found")
}

func TestFormatJSON(t *testing.T) {
	path := writeReplayLog(t)
	result, err := Replay(path, ReplayFilter{})
	require.NoError(t, err)

	out, err := FormatJSON(result)
	require.NoError(t, err)
	var decoded ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded), "output is not valid JSON")
	assert.Equal(t, 6, decoded.Summary.Total)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a-very-...", truncate("a-very-long-command-line", 10))
}
