package allowlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableNormalizedAndUnique(t *testing.T) {
	tbl := NewDefault()
	require.Equal(t, len(DefaultEntries), tbl.Len())

	for _, name := range tbl.Commands() {
		assert.Equal(t, Normalize(name), name)
		_, ok := tbl.Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestDefaultTableCoversCategories(t *testing.T) {
	seen := map[string]int{}
	for _, l := range NewDefault().List() {
		seen[l.Category]++
	}
	for _, c := range []string{
		CategoryFileInspection, CategoryDirectory, CategorySystemInfo,
		CategoryDevelopment, CategoryText, CategoryHelp,
	} {
		assert.NotZero(t, seen[c], "category %s has no commands", c)
	}
}

func TestDefaultTableCategoryMembership(t *testing.T) {
	want := map[string][]string{
		CategoryFileInspection: {"cat", "file", "head", "stat", "tail", "wc"},
		CategoryDirectory:      {"du", "find", "ls", "pwd", "tree"},
		CategorySystemInfo:     {"date", "df", "hostname", "ps", "uname", "uptime", "whoami"},
		CategoryDevelopment:    {"git", "go", "node", "npm", "python3"},
		CategoryText:           {"echo", "grep", "sort", "uniq"},
		CategoryHelp:           {"which", "whatis"},
	}

	got := map[string][]string{}
	for _, l := range NewDefault().List() {
		got[l.Category] = append(got[l.Category], l.Command)
	}
	for category, commands := range want {
		assert.ElementsMatch(t, commands, got[category], "category %s", category)
	}
	assert.Len(t, got, len(want))
}

func TestDefaultTableNarrowFlags(t *testing.T) {
	tbl := NewDefault()
	assert.True(t, tbl.Permits("python3", "--version"))
	assert.False(t, tbl.Permits("python3", "-c"))
	assert.True(t, tbl.Permits("uniq", "-c"))
	assert.True(t, tbl.Permits("hostname", "-s"))

	e, ok := tbl.Lookup("hostname")
	require.True(t, ok)
	assert.False(t, e.RequiresFile, "hostname must not take a new name")
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Entry{{Command: "ls"}, {Command: " LS "}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsEmptyCommand(t *testing.T) {
	_, err := New([]Entry{{Command: "  "}})
	require.Error(t, err)
}

func TestNewNormalizesKeys(t *testing.T) {
	tbl, err := New([]Entry{{Command: "  Cat ", AllowedArgs: []string{"-n"}}})
	require.NoError(t, err)

	e, ok := tbl.Lookup("cat")
	require.True(t, ok)
	assert.Equal(t, "cat", e.Command)
	assert.True(t, tbl.Permits("cat", "-n"))
	assert.False(t, tbl.Permits("cat", "-N"))
	assert.False(t, tbl.Permits("dog", "-n"))
}

func TestListIsStableAndSorted(t *testing.T) {
	tbl := NewDefault()
	first := tbl.List()
	second := tbl.List()
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].Command, first[i].Command)
	}
}

func TestListReturnsCopies(t *testing.T) {
	tbl := NewDefault()
	l := tbl.List()
	for i := range l {
		if len(l[i].AllowedArgs) > 0 {
			l[i].AllowedArgs[0] = "--mutated"
		}
	}
	for _, e := range tbl.List() {
		for _, a := range e.AllowedArgs {
			assert.NotEqual(t, "--mutated", a)
		}
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, len(DefaultEntries), tbl.Len())
	assert.Equal(t, emptyHash(), tbl.Hash())
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	yml := `commands:
  - command: ls
    description: list
    category: directory
    allowed_args: ["-l"]
    requires_file: true
  - command: whoami
    description: me
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls", "whoami"}, tbl.Commands())
	assert.NotEqual(t, emptyHash(), tbl.Hash())

	e, ok := tbl.Lookup("ls")
	require.True(t, ok)
	assert.True(t, e.RequiresFile)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commands: [[["), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEmptyTableIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commands: []\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaultYAMLLoadsBack(t *testing.T) {
	data, err := DefaultYAML()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, NewDefault().List(), tbl.List())
	assert.NotEqual(t, NewDefault().Hash(), tbl.Hash())
}
