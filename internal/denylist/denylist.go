package denylist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RuleSpec is the raw, uncompiled form of a rule as it appears in YAML.
type RuleSpec struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Pattern     string `yaml:"pattern"`
}

// Patterns holds the raw rule specs in evaluation order.
type Patterns struct {
	Rules []RuleSpec `yaml:"rules"`
}

// Rule is a compiled forbidden pattern.
type Rule struct {
	ID          string
	Description string
	Pattern     *regexp.Regexp
}

// Denylist is an ordered, read-only collection of compiled rules.
type Denylist struct {
	rules []Rule
	hash  string
}

// New compiles raw patterns. Unlike allow-list entries, a rule that fails
// to compile is an error: silently dropping a deny rule would weaken policy.
func New(p Patterns) (*Denylist, error) {
	d := &Denylist{hash: emptyHash()}
	seen := make(map[string]bool, len(p.Rules))
	for i, spec := range p.Rules {
		if spec.ID == "" {
			return nil, fmt.Errorf("denylist: rule %d has no id", i)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("denylist: duplicate rule id %q", spec.ID)
		}
		seen[spec.ID] = true
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("denylist: rule %q: %w", spec.ID, err)
		}
		d.rules = append(d.rules, Rule{ID: spec.ID, Description: spec.Description, Pattern: re})
	}
	return d, nil
}

// NewDefault creates a Denylist with the hardcoded default rules.
func NewDefault() *Denylist {
	d, err := New(DefaultPatterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Load reads a denylist from a YAML file. Falls back to defaults if file doesn't exist.
func Load(path string) (*Denylist, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewDefault(), nil
		}
		path = filepath.Join(home, ".shellgate", "denylist.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, err
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if len(p.Rules) == 0 {
		return nil, fmt.Errorf("denylist %s: no rules defined", path)
	}

	d, err := New(p)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(data)
	d.hash = "sha256:" + hex.EncodeToString(h[:])
	return d, nil
}

// Match tests line against every rule in order and returns the first rule
// that matches.
func (d *Denylist) Match(line string) (Rule, bool) {
	for _, r := range d.rules {
		if r.Pattern.MatchString(line) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the compiled rules in evaluation order.
func (d *Denylist) Rules() []Rule {
	return append([]Rule(nil), d.rules...)
}

// Len returns the number of rules.
func (d *Denylist) Len() int {
	return len(d.rules)
}

// Hash is the sha256 of the YAML source, or of empty input for defaults.
func (d *Denylist) Hash() string {
	return d.hash
}

// Reason formats a rule as a human-readable rejection reason.
func (r Rule) Reason() string {
	if r.Description == "" {
		return "forbidden pattern " + r.ID
	}
	return fmt.Sprintf("forbidden pattern %s: %s", r.ID, r.Description)
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultYAML renders DefaultPatterns in the on-disk format Load reads.
func DefaultYAML() ([]byte, error) {
	return yaml.Marshal(DefaultPatterns)
}
