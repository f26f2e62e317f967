package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzVerify(f *testing.F) {
	validLog := filepath.Join(f.TempDir(), "valid.jsonl")
	al, err := Open(validLog)
	require.NoError(f, err)
	for i := 0; i < 3; i++ {
		_ = al.Record(Entry{
			SessionID:  "s-fuzz",
			Op:         OpExec,
			Command:    "echo",
			Args:       []string{"hello"},
			Decision:   DecisionAllow,
			PolicyHash: "sha256:test",
		})
	}
	_ = al.Close()
	validData, _ := os.ReadFile(validLog)
	f.Add(validData)

	f.Add([]byte{})
	f.Add([]byte(`{"not":"a valid entry"}` + "\n"))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		tmpFile := filepath.Join(t.TempDir(), "fuzz.jsonl")
		_ = os.WriteFile(tmpFile, data, 0o644)

		// must not panic
		_ = Verify(tmpFile)
		_, _ = Replay(tmpFile, ReplayFilter{})
	})
}
