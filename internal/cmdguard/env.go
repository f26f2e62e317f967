package cmdguard

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// InheritedEnv lists the only variables copied from the gateway's own
// environment into a spawned command.
var InheritedEnv = []string{"PATH", "HOME", "USER", "SHELL"}

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// protected names cannot be set by callers: they change which binary runs
// or what gets loaded into it.
var protectedEnv = map[string]bool{
	"PATH":        true,
	"IFS":         true,
	"BASH_ENV":    true,
	"ENV":         true,
	"GCONV_PATH":  true,
	"LOCALDOMAIN": true,
}

var protectedEnvPrefixes = []string{"LD_", "DYLD_"}

// BuildEnv returns the minimal inherited environment with extra layered on
// top, sorted by name. lookup defaults to os.LookupEnv.
func BuildEnv(extra map[string]string, lookup func(string) (string, bool)) ([]string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	env := make(map[string]string, len(InheritedEnv)+len(extra))
	for _, k := range InheritedEnv {
		if v, ok := lookup(k); ok {
			env[k] = v
		}
	}

	for k, v := range extra {
		if err := checkEnvVar(k, v); err != nil {
			return nil, err
		}
		env[k] = v
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out, nil
}

func checkEnvVar(k, v string) error {
	if !envName.MatchString(k) {
		return &PolicyRejection{Rule: RuleEnv, Reason: fmt.Sprintf("invalid environment variable name %q", k)}
	}
	if strings.ContainsRune(v, 0) {
		return &PolicyRejection{Rule: RuleEnv, Reason: fmt.Sprintf("environment variable %s contains a NUL byte", k)}
	}
	upper := strings.ToUpper(k)
	if protectedEnv[upper] {
		return &PolicyRejection{Rule: RuleEnv, Reason: fmt.Sprintf("environment variable %s may not be overridden", k)}
	}
	for _, p := range protectedEnvPrefixes {
		if strings.HasPrefix(upper, p) {
			return &PolicyRejection{Rule: RuleEnv, Reason: fmt.Sprintf("environment variable %s may not be set (%s* is reserved)", k, p)}
		}
	}
	return nil
}
