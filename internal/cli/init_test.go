package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/config"
	"github.com/ppiankov/shellgate/internal/denylist"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}

func TestRunInit_WritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conf")
	initDir = dir
	initForce = false

	cmd, stdout, _ := newTestCmd()
	require.NoError(t, runInit(cmd, nil))
	assert.Contains(t, stdout.String(), "Created:")

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err, "config.yaml does not load")
	assert.Equal(t, filepath.Join(dir, "allowlist.yaml"), cfg.Allowlist)

	tbl, err := allowlist.Load(cfg.Allowlist)
	require.NoError(t, err, "allowlist.yaml does not load")
	assert.Equal(t, allowlist.NewDefault().Len(), tbl.Len())

	dl, err := denylist.Load(cfg.Denylist)
	require.NoError(t, err, "denylist.yaml does not load")
	assert.Equal(t, denylist.NewDefault().Len(), dl.Len())
}

func TestRunInit_NoOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	sentinel := "# sentinel content\n"
	allowPath := filepath.Join(dir, "allowlist.yaml")
	require.NoError(t, os.WriteFile(allowPath, []byte(sentinel), 0o644))

	initDir = dir
	initForce = false
	cmd, _, _ := newTestCmd()
	require.NoError(t, runInit(cmd, nil))

	assert.Equal(t, sentinel, readFile(t, allowPath), "allowlist.yaml was overwritten without --force")
}

func TestRunInit_ForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	allowPath := filepath.Join(dir, "allowlist.yaml")
	require.NoError(t, os.WriteFile(allowPath, []byte("# sentinel content\n"), 0o644))

	initDir = dir
	initForce = true
	defer func() { initForce = false }()

	cmd, _, _ := newTestCmd()
	require.NoError(t, runInit(cmd, nil))

	assert.Contains(t, readFile(t, allowPath), "commands:")
}

func TestRunInit_SecondRunReportsExisting(t *testing.T) {
	initDir = t.TempDir()
	initForce = false

	cmd, _, _ := newTestCmd()
	require.NoError(t, runInit(cmd, nil))
	cmd, stdout, _ := newTestCmd()
	require.NoError(t, runInit(cmd, nil))
	assert.Contains(t, stdout.String(), "already exist")
}
