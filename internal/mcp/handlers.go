package mcp

import (
	"context"
	"errors"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/boundary"
	"github.com/ppiankov/shellgate/internal/cmdguard"
	"github.com/ppiankov/shellgate/internal/gateway"
)

// Kinds of refusal reported to the client.
const (
	KindPolicy         = "policy"
	KindBoundary       = "boundary"
	KindInfrastructure = "infrastructure"
)

// --- Input/Output types ---

// ExecInput defines parameters for the execute_command tool.
type ExecInput struct {
	Command   string            `json:"command" jsonschema:"command name, e.g. ls"`
	Args      []string          `json:"args,omitempty" jsonschema:"arguments, one literal per element"`
	Cwd       string            `json:"cwd,omitempty" jsonschema:"working directory for this command only, relative to the current directory"`
	TimeoutMS int               `json:"timeout_ms,omitempty" jsonschema:"timeout in milliseconds, capped at 10000"`
	Env       map[string]string `json:"env,omitempty" jsonschema:"extra environment variables"`
}

// ExecOutput contains the command result or the refusal details.
type ExecOutput struct {
	Command   string `json:"command,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	ExitCode  int    `json:"exit_code"`
	TimedOut  bool   `json:"timed_out,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Rejected  bool   `json:"rejected,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// refusal describes a request that was not carried out.
type refusal struct {
	rejected bool
	kind     string
	rule     string
	reason   string
}

// CdInput defines parameters for the change_directory tool.
type CdInput struct {
	Path string `json:"path" jsonschema:"directory to change to, absolute or relative to the current directory"`
}

// CdOutput contains the new directory or the refusal details.
type CdOutput struct {
	CurrentDirectory string `json:"current_directory"`
	Rejected         bool   `json:"rejected,omitempty"`
	Kind             string `json:"kind,omitempty"`
	Rule             string `json:"rule,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// EmptyInput is used by tools that take no parameters.
type EmptyInput struct{}

// CwdOutput contains the current directory.
type CwdOutput struct {
	CurrentDirectory string `json:"current_directory"`
}

// ListOutput contains the allow-list.
type ListOutput struct {
	Commands []allowlist.Listing `json:"commands"`
	Count    int                 `json:"count"`
}

// CheckInput defines parameters for the check_command tool.
type CheckInput struct {
	Command string   `json:"command" jsonschema:"command name"`
	Args    []string `json:"args,omitempty" jsonschema:"arguments"`
}

// CheckOutput contains the validation decision.
type CheckOutput struct {
	Accepted bool   `json:"accepted"`
	Line     string `json:"line,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// SessionOutput describes the session.
type SessionOutput struct {
	SessionID        string `json:"session_id"`
	StartedAt        string `json:"started_at"`
	BoundaryRoot     string `json:"boundary_root"`
	BoundaryDisabled bool   `json:"boundary_disabled,omitempty"`
	CurrentDirectory string `json:"current_directory"`
	LastCommand      string `json:"last_command,omitempty"`
	LastExitCode     *int   `json:"last_exit_code,omitempty"`
}

// --- Handlers ---

func (s *Server) handleExecute(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecInput) (*mcpsdk.CallToolResult, ExecOutput, error) {
	res, err := s.gw.ExecuteCommand(ctx, input.Command, input.Args, gateway.Options{
		Cwd:     input.Cwd,
		Timeout: time.Duration(input.TimeoutMS) * time.Millisecond,
		Env:     input.Env,
	})

	var out ExecOutput
	if res != nil {
		out = ExecOutput{
			Command:   res.Command,
			Cwd:       res.Dir,
			Stdout:    res.Stdout,
			Stderr:    res.Stderr,
			ExitCode:  res.ExitCode,
			TimedOut:  res.TimedOut,
			Truncated: res.Truncated,
		}
	}
	if err == nil {
		return nil, out, nil
	}

	r, ok := classify(err)
	if !ok {
		return nil, out, err
	}
	out.Rejected, out.Kind, out.Rule, out.Reason = r.rejected, r.kind, r.rule, r.reason
	return errorResult(r), out, nil
}

func (s *Server) handleChangeDirectory(ctx context.Context, req *mcpsdk.CallToolRequest, input CdInput) (*mcpsdk.CallToolResult, CdOutput, error) {
	dir, err := s.gw.ChangeDirectory(input.Path)
	if err == nil {
		return nil, CdOutput{CurrentDirectory: dir}, nil
	}

	r, ok := classify(err)
	if !ok {
		return nil, CdOutput{}, err
	}
	out := CdOutput{
		CurrentDirectory: s.gw.CurrentDirectory(),
		Rejected:         r.rejected,
		Kind:             r.kind,
		Rule:             r.rule,
		Reason:           r.reason,
	}
	return errorResult(r), out, nil
}

func (s *Server) handleCurrentDirectory(ctx context.Context, req *mcpsdk.CallToolRequest, input EmptyInput) (*mcpsdk.CallToolResult, CwdOutput, error) {
	return nil, CwdOutput{CurrentDirectory: s.gw.CurrentDirectory()}, nil
}

func (s *Server) handleListCommands(ctx context.Context, req *mcpsdk.CallToolRequest, input EmptyInput) (*mcpsdk.CallToolResult, ListOutput, error) {
	cmds := s.gw.ListAllowedCommands()
	return nil, ListOutput{Commands: cmds, Count: len(cmds)}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	o := s.gw.Check(input.Command, input.Args)
	if o.Accepted {
		return nil, CheckOutput{Accepted: true, Line: o.Line()}, nil
	}
	return nil, CheckOutput{Rule: o.Rejection.Rule, Reason: o.Rejection.Reason}, nil
}

func (s *Server) handleSession(ctx context.Context, req *mcpsdk.CallToolRequest, input EmptyInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	snap := s.gw.Session()
	out := SessionOutput{
		SessionID:        snap.ID,
		StartedAt:        snap.StartedAt.Format(time.RFC3339),
		BoundaryRoot:     snap.Root,
		BoundaryDisabled: snap.Escaped,
		CurrentDirectory: snap.CurrentDirectory,
		LastExitCode:     snap.LastExitCode,
	}
	if snap.LastCommand != nil {
		out.LastCommand = *snap.LastCommand
	}
	return nil, out, nil
}

// classify maps gateway errors to a refusal. ok is false for errors that
// are none of the known kinds.
func classify(err error) (refusal, bool) {
	var (
		pr    *cmdguard.PolicyRejection
		br    *boundary.Rejection
		infra *cmdguard.InfrastructureError
	)
	switch {
	case errors.As(err, &pr):
		return refusal{rejected: true, kind: KindPolicy, rule: pr.Rule, reason: pr.Error()}, true
	case errors.As(err, &br):
		return refusal{rejected: true, kind: KindBoundary, rule: string(br.Kind), reason: br.Error()}, true
	case errors.As(err, &infra):
		return refusal{kind: KindInfrastructure, rule: infra.Op, reason: infra.Error()}, true
	}
	return refusal{}, false
}

func errorResult(r refusal) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: r.reason}},
	}
}
