// Package gateway is the core facade the protocol layer calls into. It owns
// the session state and sequences every request through the validator, the
// boundary resolver and the execution gate.
//
// Requests are serialized around session state: a directory change holds
// the write lock from reading the current directory to storing the new one,
// and an execution reads the directory under the lock but releases it while
// the process runs, so CurrentDirectory is never blocked by a slow command.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/audit"
	"github.com/ppiankov/shellgate/internal/boundary"
	"github.com/ppiankov/shellgate/internal/cmdguard"
	"github.com/ppiankov/shellgate/internal/denylist"
	"github.com/ppiankov/shellgate/internal/logging"
)

// Config is read once when the Gateway is built.
type Config struct {
	Root        string
	AllowEscape bool
	// InitialDir defaults to the process working directory. When it is
	// outside the boundary the session starts at Root instead.
	InitialDir string

	Table    *allowlist.Table
	Denylist *denylist.Denylist

	DefaultTimeout time.Duration
	MaxOutput      int
	RedactOutput   bool
	LookupEnv      func(string) (string, bool)

	Audit  audit.Recorder
	Logger *slog.Logger
}

// Options are per-request execution settings.
type Options struct {
	// Cwd overrides the session directory for this command only. It is
	// resolved against the session directory and boundary-checked.
	Cwd     string
	Timeout time.Duration
	Env     map[string]string
}

// Gateway is safe for concurrent use.
type Gateway struct {
	guard          *cmdguard.Guard
	resolver       *boundary.Resolver
	table          *allowlist.Table
	policyHash     string
	defaultTimeout time.Duration
	audit          audit.Recorder
	log            *slog.Logger

	mu      sync.RWMutex
	session SessionState
}

// New builds a Gateway. Nil tables fall back to the built-in policy.
func New(cfg Config) (*Gateway, error) {
	if cfg.Table == nil {
		cfg.Table = allowlist.NewDefault()
	}
	if cfg.Denylist == nil {
		cfg.Denylist = denylist.NewDefault()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Audit == nil {
		cfg.Audit = (*audit.Log)(nil)
	}

	resolver, err := boundary.New(cfg.Root, cfg.AllowEscape)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		guard: cmdguard.NewGuard(cmdguard.Config{
			Table:        cfg.Table,
			Denylist:     cfg.Denylist,
			MaxOutput:    cfg.MaxOutput,
			RedactOutput: cfg.RedactOutput,
			LookupEnv:    cfg.LookupEnv,
		}),
		resolver:       resolver,
		table:          cfg.Table,
		policyHash:     PolicyHash(cfg.Table, cfg.Denylist),
		defaultTimeout: cfg.DefaultTimeout,
		audit:          cfg.Audit,
		log:            cfg.Logger,
	}

	cwd, err := g.initialDirectory(cfg.InitialDir)
	if err != nil {
		return nil, err
	}
	g.session = newSession(cwd)

	g.log.Info("policy loaded",
		"commands", cfg.Table.Len(),
		"deny_rules", cfg.Denylist.Len(),
		"policy_hash", g.policyHash)

	start := audit.Entry{
		SessionID: g.session.ID,
		Op:        audit.OpStart,
		Path:      resolver.Root(),
		Cwd:       cwd,
		Decision:  audit.DecisionAllow,
	}
	if resolver.Escaped() {
		g.log.Warn("boundary enforcement disabled", "session_id", g.session.ID, "cwd", cwd)
		start.Rule = "allow-escape"
		start.Reason = "boundary enforcement disabled"
	} else {
		g.log.Info("session started", "session_id", g.session.ID, "root", resolver.Root(), "cwd", cwd)
	}
	g.record(start)

	return g, nil
}

func (g *Gateway) initialDirectory(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			if g.resolver.Root() == "" {
				return "", fmt.Errorf("determine working directory: %w", err)
			}
			return g.resolver.Root(), nil
		}
		dir = wd
	}

	canonical, err := boundary.Canonicalize(dir)
	if err == nil {
		if info, statErr := os.Stat(canonical); statErr == nil && info.IsDir() && g.resolver.Contains(canonical) {
			return canonical, nil
		}
	}
	if g.resolver.Escaped() && g.resolver.Root() == "" {
		return "", fmt.Errorf("initial directory %s is not usable", dir)
	}
	g.log.Info("initial directory outside boundary, starting at root", "requested", dir, "root", g.resolver.Root())
	return g.resolver.Root(), nil
}

// PolicyHash identifies the combined allow-list and deny-list.
func PolicyHash(t *allowlist.Table, d *denylist.Denylist) string {
	return audit.HashLine([]byte(t.Hash() + "\n" + d.Hash()))
}

// ExecuteCommand validates command and args, resolves the working directory
// and runs the command. A non-zero exit is returned as data. Errors are
// *cmdguard.PolicyRejection, *boundary.Rejection or
// *cmdguard.InfrastructureError; a spawn failure returns both a Result and
// the error.
func (g *Gateway) ExecuteCommand(ctx context.Context, command string, args []string, opts Options) (*cmdguard.Result, error) {
	outcome := g.guard.Check(command, args)

	g.mu.RLock()
	cwd := g.session.CurrentDirectory
	sessionID := g.session.ID
	g.mu.RUnlock()

	entry := audit.Entry{
		SessionID: sessionID,
		Op:        audit.OpExec,
		Command:   outcome.Command,
		Args:      outcome.Args,
		Cwd:       cwd,
	}
	if entry.Command == "" {
		entry.Command = command
		entry.Args = args
	}

	if !outcome.Accepted {
		g.reject(entry, outcome.Rejection.Rule, outcome.Rejection)
		return nil, outcome.Err()
	}

	dir, err := g.resolver.Resolve(cwd, opts.Cwd)
	if err != nil {
		var rej *boundary.Rejection
		if errors.As(err, &rej) {
			g.reject(entry, string(rej.Kind), rej)
			return nil, err
		}
		infra := &cmdguard.InfrastructureError{Op: "working directory check", Err: err}
		g.fail(entry, infra)
		return nil, infra
	}
	entry.Cwd = dir

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = g.defaultTimeout
	}

	res, err := g.guard.Execute(ctx, cmdguard.Request{
		Outcome: outcome,
		Dir:     dir,
		Env:     opts.Env,
		Timeout: timeout,
	})
	if res == nil {
		var pr *cmdguard.PolicyRejection
		if errors.As(err, &pr) {
			g.reject(entry, pr.Rule, pr)
		} else if err != nil {
			g.fail(entry, err)
		}
		return nil, err
	}

	g.mu.Lock()
	g.session.recordAttempt(res.Command, res.ExitCode)
	g.mu.Unlock()

	code := res.ExitCode
	entry.ExitCode = &code
	entry.TimedOut = res.TimedOut
	entry.DurationMS = res.Duration.Milliseconds()

	switch {
	case err != nil:
		g.fail(entry, err)
	case res.TimedOut:
		g.log.Warn("command timed out", "command", res.Command, "cwd", dir, "timeout", g.guard.EffectiveTimeout(timeout))
		entry.Decision = audit.DecisionAllow
		g.record(entry)
	default:
		g.log.Info("command executed", "command", res.Command, "cwd", dir, "exit_code", res.ExitCode, "duration", res.Duration)
		entry.Decision = audit.DecisionAllow
		g.record(entry)
	}
	return res, err
}

// ChangeDirectory resolves path against the current directory and, when it
// is inside the boundary and exists, makes it the new current directory.
func (g *Gateway) ChangeDirectory(path string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry := audit.Entry{
		SessionID: g.session.ID,
		Op:        audit.OpCd,
		Path:      path,
		Cwd:       g.session.CurrentDirectory,
	}

	resolved, err := g.resolver.Resolve(g.session.CurrentDirectory, path)
	if err != nil {
		var rej *boundary.Rejection
		if errors.As(err, &rej) {
			g.reject(entry, string(rej.Kind), rej)
			return "", err
		}
		infra := &cmdguard.InfrastructureError{Op: "resolve directory", Err: err}
		g.fail(entry, infra)
		return "", infra
	}

	g.session.CurrentDirectory = resolved
	g.log.Info("directory changed", "from", entry.Cwd, "to", resolved)
	entry.Decision = audit.DecisionAllow
	entry.Reason = resolved
	g.record(entry)
	return resolved, nil
}

// CurrentDirectory returns the session's current directory.
func (g *Gateway) CurrentDirectory() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session.CurrentDirectory
}

// ListAllowedCommands returns the allow-list ordered by command name.
func (g *Gateway) ListAllowedCommands() []allowlist.Listing {
	return g.table.List()
}

// Check validates a command without running it.
func (g *Gateway) Check(command string, args []string) cmdguard.Outcome {
	return g.guard.Check(command, args)
}

// Session returns a copy of the session state.
func (g *Gateway) Session() SessionSnapshot {
	g.mu.RLock()
	snap := g.session.snapshot()
	g.mu.RUnlock()
	snap.Root = g.resolver.Root()
	snap.Escaped = g.resolver.Escaped()
	return snap
}

// Root returns the canonical boundary root.
func (g *Gateway) Root() string {
	return g.resolver.Root()
}

// PolicyHash returns the hash recorded with every audit entry.
func (g *Gateway) PolicyHash() string {
	return g.policyHash
}

func (g *Gateway) reject(entry audit.Entry, rule string, err error) {
	g.log.Info("request rejected", "op", entry.Op, "subject", entry.Subject(), "rule", rule, "reason", err.Error())
	entry.Decision = audit.DecisionDeny
	entry.Rule = rule
	entry.Reason = err.Error()
	g.record(entry)
}

func (g *Gateway) fail(entry audit.Entry, err error) {
	g.log.Error("request failed", "op", entry.Op, "subject", entry.Subject(), "error", err)
	entry.Decision = audit.DecisionError
	entry.Reason = err.Error()
	g.record(entry)
}

func (g *Gateway) record(entry audit.Entry) {
	entry.PolicyHash = g.policyHash
	if err := g.audit.Record(entry); err != nil {
		g.log.Error("audit write failed", "error", err)
	}
}
