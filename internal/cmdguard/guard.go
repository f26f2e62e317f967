package cmdguard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/denylist"
)

// MaxTimeout is the hard ceiling on a single execution, whatever the
// caller asks for.
const MaxTimeout = 10 * time.Second

// Synthetic exit codes for attempts that did not produce a real status.
const (
	ExitTimeout      = 124
	ExitSpawnFailure = 127
)

// Config holds command guard configuration.
type Config struct {
	Table      *allowlist.Table
	Denylist   *denylist.Denylist
	MaxTimeout time.Duration
	MaxOutput  int
	// RedactOutput replaces credential-looking values in captured output.
	RedactOutput bool
	// LookupEnv reads the gateway's own environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Request is one execution of an already validated command.
type Request struct {
	Outcome Outcome
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Result captures subprocess execution outcome. A non-zero exit code is an
// ordinary result, not an error.
type Result struct {
	Command   string        `json:"command"`
	Dir       string        `json:"dir"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exit_code"`
	TimedOut  bool          `json:"timed_out,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Redacted  int           `json:"redacted,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// InfrastructureError means the gateway itself could not do its job: the
// process could not be spawned, or a working directory could not be checked.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Guard validates commands and runs the ones that pass.
type Guard struct {
	validator  *Validator
	maxTimeout time.Duration
	maxOutput  int
	redact     bool
	lookupEnv  func(string) (string, bool)
}

// NewGuard creates a Guard. Nil tables fall back to the built-in defaults.
func NewGuard(cfg Config) *Guard {
	if cfg.Table == nil {
		cfg.Table = allowlist.NewDefault()
	}
	if cfg.Denylist == nil {
		cfg.Denylist = denylist.NewDefault()
	}
	if cfg.MaxTimeout <= 0 || cfg.MaxTimeout > MaxTimeout {
		cfg.MaxTimeout = MaxTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	return &Guard{
		validator:  NewValidator(cfg.Table, cfg.Denylist),
		maxTimeout: cfg.MaxTimeout,
		maxOutput:  cfg.MaxOutput,
		redact:     cfg.RedactOutput,
		lookupEnv:  cfg.LookupEnv,
	}
}

// Check validates without executing. Dry-run mode.
func (g *Guard) Check(command string, args []string) Outcome {
	return g.validator.Validate(command, args)
}

// Table returns the allow-list in use.
func (g *Guard) Table() *allowlist.Table {
	return g.validator.Table()
}

// EffectiveTimeout clamps a requested timeout to the ceiling. Zero or
// negative requests get the ceiling.
func (g *Guard) EffectiveTimeout(requested time.Duration) time.Duration {
	if requested <= 0 || requested > g.maxTimeout {
		return g.maxTimeout
	}
	return requested
}

// Execute spawns a validated command in req.Dir under a minimal environment
// and the clamped timeout. The caller is responsible for having checked
// req.Dir against the boundary.
//
// Spawn failures return a Result with ExitSpawnFailure together with an
// *InfrastructureError. A timeout, whether from the clamp or from a deadline
// on ctx, kills the process group and returns a Result with TimedOut set and
// ExitTimeout, without an error. Cancelling ctx is an *InfrastructureError.
func (g *Guard) Execute(ctx context.Context, req Request) (*Result, error) {
	if !req.Outcome.Accepted {
		if err := req.Outcome.Err(); err != nil {
			return nil, err
		}
		return nil, &PolicyRejection{Command: req.Outcome.Command, Rule: RuleUnvalidated, Reason: "command was not validated"}
	}

	env, err := BuildEnv(req.Env, g.lookupEnv)
	if err != nil {
		if pr, ok := err.(*PolicyRejection); ok {
			pr.Command = req.Outcome.Command
		}
		return nil, err
	}

	timeout := g.EffectiveTimeout(req.Timeout)
	limit := timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < limit {
			limit = d.Round(time.Millisecond)
		}
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, req.Outcome.Command, req.Outcome.Args...)
	cmd.Dir = req.Dir
	cmd.Env = env
	cmd.WaitDelay = time.Second
	setProcessGroup(cmd)

	stdout := &cappedBuffer{limit: g.maxOutput}
	stderr := &cappedBuffer{limit: g.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()

	res := &Result{
		Command:   req.Outcome.Line(),
		Dir:       req.Dir,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		res.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// either the clamp or an earlier caller deadline
		res.ExitCode = ExitTimeout
		res.TimedOut = true
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("command timed out after %s and was killed", limit))
	case ctx.Err() != nil:
		// the caller went away; the process group has already been killed
		res.ExitCode = exitStatus(cmd.ProcessState)
		return g.finish(res), &InfrastructureError{Op: "execute", Err: ctx.Err()}
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitStatus(exitErr.ProcessState)
	case errors.Is(runErr, exec.ErrWaitDelay):
		// exited, but a grandchild kept the output pipes open
		res.ExitCode = exitStatus(cmd.ProcessState)
	default:
		res.ExitCode = ExitSpawnFailure
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("failed to start %s: %v", req.Outcome.Command, runErr))
		return g.finish(res), &InfrastructureError{Op: "spawn", Err: runErr}
	}

	return g.finish(res), nil
}

func (g *Guard) finish(res *Result) *Result {
	if !g.redact {
		return res
	}
	var n, m int
	res.Stdout, n = redactSecrets(res.Stdout)
	res.Stderr, m = redactSecrets(res.Stderr)
	res.Redacted = n + m
	return res
}

func appendLine(s, line string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s + line
	}
	return s + "\n" + line
}
