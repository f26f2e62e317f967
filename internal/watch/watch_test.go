package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/shellgate/internal/logging"
)

func TestNewSkipsMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "allowlist.yaml")
	require.NoError(t, os.WriteFile(present, []byte("commands: []\n"), 0o600))

	w, err := New([]string{"", present, filepath.Join(dir, "missing.yaml")}, func(string) {}, logging.Discard())
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.Equal(t, []string{present}, w.Paths())
}

func TestRunReportsDebouncedChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denylist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o600))

	changed := make(chan string, 4)
	w, err := New([]string{path}, func(p string) { changed <- p }, logging.Discard())
	require.NoError(t, err)
	w.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// several quick writes collapse into one notification
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("rules: []\n# edit\n"), 0o600))
	}

	select {
	case got := <-changed:
		assert.Equal(t, path, got)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "no change notification")
	}

	select {
	case extra := <-changed:
		require.FailNow(t, "expected a single debounced notification", "got another for %s", extra)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "Run did not return after cancel")
	}
}
