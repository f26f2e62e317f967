package cmdguard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/denylist"
)

// MaxArgs is the largest sanitized argument list a command may carry.
const MaxArgs = 10

// Rule identifiers for rejections raised by the validator itself. Deny-list
// rejections carry the deny rule's own ID.
const (
	RuleEmpty          = "empty"
	RuleInvalid        = "invalid-command"
	RuleNotAllowed     = "not-allowed"
	RuleArgument       = "argument"
	RuleTooManyArgs    = "too-many-arguments"
	RuleShellStructure = "shell-structure"
	RuleEnv            = "env"
	RuleUnvalidated    = "unvalidated"
)

// pathArg is the grammar for free-form arguments on entries that take paths.
var pathArg = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// PolicyRejection is returned when a request is refused by policy.
// It is raised before any process is spawned.
type PolicyRejection struct {
	Command string
	Rule    string
	Reason  string
}

func (e *PolicyRejection) Error() string {
	return fmt.Sprintf("command rejected (%s): %s", e.Rule, e.Reason)
}

// Outcome is the result of validation. When Accepted is false, Rejection
// says why; otherwise Command and Args hold the sanitized form.
type Outcome struct {
	Accepted  bool
	Command   string
	Args      []string
	Rejection *PolicyRejection
}

// Err returns the rejection as an error, or nil when accepted.
func (o Outcome) Err() error {
	if o.Accepted || o.Rejection == nil {
		return nil
	}
	return o.Rejection
}

// Line is the sanitized command line, space-joined.
func (o Outcome) Line() string {
	if len(o.Args) == 0 {
		return o.Command
	}
	return o.Command + " " + strings.Join(o.Args, " ")
}

func reject(command, rule, reason string) Outcome {
	return Outcome{Rejection: &PolicyRejection{Command: command, Rule: rule, Reason: reason}}
}

// Validator decides whether a (command, args) pair may run. It holds only
// read-only tables and is safe for concurrent use.
type Validator struct {
	table *allowlist.Table
	deny  *denylist.Denylist
}

// NewValidator creates a Validator over the given tables.
func NewValidator(table *allowlist.Table, deny *denylist.Denylist) *Validator {
	return &Validator{table: table, deny: deny}
}

// Table returns the allow-list the validator consults.
func (v *Validator) Table() *allowlist.Table {
	return v.table
}

// Validate checks command and args against the allow-list, the deny-list
// and the argument rules. It performs no I/O.
func (v *Validator) Validate(command string, args []string) Outcome {
	if strings.TrimSpace(command) == "" {
		return reject(command, RuleEmpty, "command is empty")
	}
	if strings.IndexFunc(command, unicode.IsControl) >= 0 {
		return reject(command, RuleInvalid, fmt.Sprintf("command %q contains control characters", command))
	}

	name := allowlist.Normalize(command)
	entry, ok := v.table.Lookup(name)
	if !ok {
		return reject(name, RuleNotAllowed, fmt.Sprintf(
			"command %q is not allowed; allowed commands: %s",
			name, strings.Join(v.table.Commands(), ", ")))
	}

	line := name + " " + strings.Join(args, " ")
	if r, blocked := v.deny.Match(line); blocked {
		return reject(name, r.ID, r.Reason())
	}

	sanitized := make([]string, 0, len(args))
	for _, raw := range args {
		arg := strings.TrimSpace(raw)
		if arg == "" {
			continue
		}
		if v.table.Permits(name, arg) {
			sanitized = append(sanitized, arg)
			continue
		}
		if entry.RequiresFile && !strings.HasPrefix(arg, "-") && pathArg.MatchString(arg) {
			sanitized = append(sanitized, arg)
			continue
		}
		return reject(name, RuleArgument, fmt.Sprintf("argument %q is not permitted for %s", arg, name))
	}

	if len(sanitized) > MaxArgs {
		return reject(name, RuleTooManyArgs, fmt.Sprintf("too many arguments: %d (max %d)", len(sanitized), MaxArgs))
	}

	out := Outcome{Accepted: true, Command: name, Args: sanitized}
	if err := checkSimpleCommand(out.Line()); err != nil {
		return reject(name, RuleShellStructure, err.Error())
	}
	return out
}
