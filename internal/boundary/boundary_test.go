package boundary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTree creates root/subdir/nested and returns the canonical root.
func newTree(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "subdir", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))
	return root
}

func requireKind(t *testing.T, err error, kind Kind) *Rejection {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected *Rejection, got %T: %v", err, err)
	require.Equal(t, kind, rej.Kind)
	return rej
}

func TestNewRequiresExistingDirectory(t *testing.T) {
	_, err := New("", false)
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "missing"), false)
	assert.Error(t, err)

	root := newTree(t)
	_, err = New(filepath.Join(root, "file.txt"), false)
	assert.ErrorContains(t, err, "not a directory")
}

func TestNewCanonicalizesRoot(t *testing.T) {
	root := newTree(t)
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(root, link))

	r, err := New(link, false)
	require.NoError(t, err)
	assert.Equal(t, root, r.Root())
	assert.False(t, r.Escaped())
}

func TestResolveInsideBoundary(t *testing.T) {
	root := newTree(t)
	r, err := New(root, false)
	require.NoError(t, err)

	tests := []struct {
		name      string
		cwd       string
		requested string
		want      string
	}{
		{"relative child", root, "subdir", filepath.Join(root, "subdir")},
		{"nested", root, "subdir/nested", filepath.Join(root, "subdir", "nested")},
		{"dot", root, ".", root},
		{"empty means cwd", filepath.Join(root, "subdir"), "", filepath.Join(root, "subdir")},
		{"parent back to root", filepath.Join(root, "subdir"), "..", root},
		{"absolute", "/", filepath.Join(root, "subdir"), filepath.Join(root, "subdir")},
		{"dotdot inside", filepath.Join(root, "subdir", "nested"), "../../subdir", filepath.Join(root, "subdir")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.cwd, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOutsideBoundary(t *testing.T) {
	root := newTree(t)
	r, err := New(root, false)
	require.NoError(t, err)

	for _, requested := range []string{"../../../etc", "..", "/", "/etc"} {
		t.Run(requested, func(t *testing.T) {
			_, err := r.Resolve(root, requested)
			rej := requireKind(t, err, KindOutside)
			assert.Equal(t, requested, rej.Requested)
			assert.Equal(t, root, rej.Root)
		})
	}
}

func TestMissingOutsideIsOutside(t *testing.T) {
	root := newTree(t)
	r, err := New(root, false)
	require.NoError(t, err)

	_, err = r.Resolve(root, "../definitely-not-here-shellgate")
	requireKind(t, err, KindOutside)
}

func TestResolveNotFound(t *testing.T) {
	root := newTree(t)
	r, err := New(root, false)
	require.NoError(t, err)

	_, err = r.Resolve(root, "nope")
	rej := requireKind(t, err, KindNotFound)
	assert.Equal(t, filepath.Join(root, "nope"), rej.Resolved)

	_, err = r.Resolve(root, "file.txt")
	requireKind(t, err, KindNotFound)
}

func TestPathThroughFile(t *testing.T) {
	root := newTree(t)
	r, err := New(root, false)
	require.NoError(t, err)

	_, err = r.Resolve(root, "file.txt/sub")
	rej := requireKind(t, err, KindNotFound)
	assert.Equal(t, filepath.Join(root, "file.txt", "sub"), rej.Resolved)

	outsideDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	outsideFile := filepath.Join(outsideDir, "passwd")
	require.NoError(t, os.WriteFile(outsideFile, []byte("x"), 0o644))

	// an existing file outside must look the same as a missing one
	_, err = r.Resolve(root, filepath.Join(outsideFile, "x"))
	requireKind(t, err, KindOutside)
	_, err = r.Resolve(root, filepath.Join(outsideDir, "nonexistent", "x"))
	requireKind(t, err, KindOutside)
}

func TestCanonicalizeThroughFile(t *testing.T) {
	root := newTree(t)
	got, err := Canonicalize(filepath.Join(root, "file.txt", "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "file.txt", "a", "b"), got)
}

func TestSiblingPrefixIsOutside(t *testing.T) {
	parent, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	root := filepath.Join(parent, "tmp")
	sibling := filepath.Join(parent, "tmp2")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(sibling, 0o755))

	r, err := New(root, false)
	require.NoError(t, err)

	_, err = r.Resolve(root, sibling)
	requireKind(t, err, KindOutside)
	_, err = r.Resolve(root, "../tmp2")
	requireKind(t, err, KindOutside)
}

func TestSymlinkEscapeRejected(t *testing.T) {
	root := newTree(t)
	outside, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	r, err := New(root, false)
	require.NoError(t, err)

	_, err = r.Resolve(root, "escape")
	rej := requireKind(t, err, KindOutside)
	assert.Equal(t, outside, rej.Resolved)
}

func TestSymlinkInsideAccepted(t *testing.T) {
	root := newTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "subdir", "nested"), filepath.Join(root, "short")))

	r, err := New(root, false)
	require.NoError(t, err)

	got, err := r.Resolve(root, "short")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "subdir", "nested"), got)
}

func TestInvalidPath(t *testing.T) {
	root := newTree(t)
	r, err := New(root, false)
	require.NoError(t, err)

	_, err = r.Resolve(root, "sub\x00dir")
	requireKind(t, err, KindInvalid)
}

func TestEscapeModeAcceptsAnything(t *testing.T) {
	root := newTree(t)
	r, err := New(root, true)
	require.NoError(t, err)
	assert.True(t, r.Escaped())

	got, err := r.Resolve(root, "../../..")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.True(t, r.Contains("/etc"))
}

func TestHomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	r, err := New(t.TempDir(), true)
	require.NoError(t, err)

	got, err := r.Resolve("/", "~")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(home), got)
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/tmp", "/tmp", true},
		{"/tmp", "/tmp/a", true},
		{"/tmp", "/tmp/a/b", true},
		{"/tmp", "/tmp2", false},
		{"/tmp", "/tm", false},
		{"/tmp", "/", false},
		{"/", "/etc", true},
		{"/", "/", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Within(tt.root, tt.path), "Within(%q, %q)", tt.root, tt.path)
	}
}

func TestCanonicalizeMissingTail(t *testing.T) {
	root := newTree(t)
	link := filepath.Join(t.TempDir(), "alias")
	require.NoError(t, os.Symlink(root, link))

	got, err := Canonicalize(filepath.Join(link, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b"), got)
}

func TestRejectionMessages(t *testing.T) {
	out := &Rejection{Kind: KindOutside, Requested: "../x", Resolved: "/x", Root: "/r"}
	assert.Contains(t, out.Error(), "outside boundary")
	assert.Contains(t, out.Error(), "/r")

	nf := &Rejection{Kind: KindNotFound, Requested: "x", Resolved: "/r/x", Root: "/r"}
	assert.Contains(t, nf.Error(), "does not exist")
	assert.Contains(t, nf.Error(), "/r/x")
}
