// Package allowlist holds the command allow-list: which programs may run
// and, per program, which exact argument literals are permitted.
package allowlist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one permitted command.
type Entry struct {
	Command      string   `yaml:"command"`
	Description  string   `yaml:"description"`
	Category     string   `yaml:"category"`
	AllowedArgs  []string `yaml:"allowed_args"`
	RequiresFile bool     `yaml:"requires_file"`
}

// file is the on-disk YAML layout.
type file struct {
	Commands []Entry `yaml:"commands"`
}

// Listing is the read-only view of an entry returned to callers.
type Listing struct {
	Command      string   `json:"command"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	AllowedArgs  []string `json:"allowed_args"`
	RequiresFile bool     `json:"requires_file"`
}

type compiled struct {
	entry   Entry
	allowed map[string]struct{}
}

// Table is the immutable allow-list. It is safe for concurrent use because
// nothing mutates it after New returns.
type Table struct {
	entries map[string]compiled
	order   []string
	hash    string
}

// New builds a Table from entries. Command keys are trimmed and lowercased;
// duplicates and empty keys are rejected.
func New(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[string]compiled, len(entries))}
	for _, e := range entries {
		key := Normalize(e.Command)
		if key == "" {
			return nil, fmt.Errorf("allowlist: entry with empty command")
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("allowlist: duplicate command %q", key)
		}
		e.Command = key
		e.AllowedArgs = append([]string(nil), e.AllowedArgs...)
		allowed := make(map[string]struct{}, len(e.AllowedArgs))
		for _, a := range e.AllowedArgs {
			allowed[a] = struct{}{}
		}
		t.entries[key] = compiled{entry: e, allowed: allowed}
		t.order = append(t.order, key)
	}
	sort.Strings(t.order)
	t.hash = emptyHash()
	return t, nil
}

// NewDefault builds the Table from DefaultEntries.
func NewDefault() *Table {
	t, err := New(DefaultEntries)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads an allow-list from a YAML file. Empty path falls back to
// ~/.shellgate/allowlist.yaml. A missing file returns the defaults; invalid
// YAML or an invalid table is an error.
func Load(path string) (*Table, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewDefault(), nil
		}
		path = filepath.Join(home, ".shellgate", "allowlist.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, fmt.Errorf("failed to read allowlist: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse allowlist: %w", err)
	}
	if len(f.Commands) == 0 {
		return nil, fmt.Errorf("allowlist %s: no commands defined", path)
	}

	t, err := New(f.Commands)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(data)
	t.hash = "sha256:" + hex.EncodeToString(h[:])
	return t, nil
}

// Normalize trims and lowercases a command name.
func Normalize(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}

// Lookup returns the entry for an already normalized command.
func (t *Table) Lookup(command string) (Entry, bool) {
	c, ok := t.entries[command]
	return c.entry, ok
}

// Permits reports whether arg is one of the exact literals allowed for command.
func (t *Table) Permits(command, arg string) bool {
	c, ok := t.entries[command]
	if !ok {
		return false
	}
	_, ok = c.allowed[arg]
	return ok
}

// Commands returns the sorted command names.
func (t *Table) Commands() []string {
	return append([]string(nil), t.order...)
}

// List returns every entry in command order. Repeated calls return equal slices.
func (t *Table) List() []Listing {
	out := make([]Listing, 0, len(t.order))
	for _, key := range t.order {
		e := t.entries[key].entry
		out = append(out, Listing{
			Command:      e.Command,
			Description:  e.Description,
			Category:     e.Category,
			AllowedArgs:  append([]string{}, e.AllowedArgs...),
			RequiresFile: e.RequiresFile,
		})
	}
	return out
}

// Len returns the number of commands.
func (t *Table) Len() int {
	return len(t.order)
}

// Hash is the sha256 of the YAML the table was loaded from, or of empty
// input for the built-in defaults.
func (t *Table) Hash() string {
	return t.hash
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultYAML renders DefaultEntries in the on-disk format Load reads.
func DefaultYAML() ([]byte, error) {
	return yaml.Marshal(file{Commands: DefaultEntries})
}
