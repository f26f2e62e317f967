package gateway

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the single logical session's mutable record. It is owned
// by Gateway and only touched under its lock.
type SessionState struct {
	ID               string
	StartedAt        time.Time
	CurrentDirectory string
	LastCommand      *string
	LastExitCode     *int
}

func newSession(cwd string) SessionState {
	return SessionState{
		ID:               uuid.NewString(),
		StartedAt:        time.Now().UTC(),
		CurrentDirectory: cwd,
	}
}

// SessionSnapshot is a read-only copy of SessionState.
type SessionSnapshot struct {
	ID               string    `json:"session_id"`
	StartedAt        time.Time `json:"started_at"`
	CurrentDirectory string    `json:"current_directory"`
	LastCommand      *string   `json:"last_command,omitempty"`
	LastExitCode     *int      `json:"last_exit_code,omitempty"`
	Root             string    `json:"boundary_root"`
	Escaped          bool      `json:"boundary_disabled,omitempty"`
}

func (s SessionState) snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:               s.ID,
		StartedAt:        s.StartedAt,
		CurrentDirectory: s.CurrentDirectory,
	}
	if s.LastCommand != nil {
		c := *s.LastCommand
		snap.LastCommand = &c
	}
	if s.LastExitCode != nil {
		c := *s.LastExitCode
		snap.LastExitCode = &c
	}
	return snap
}

func (s *SessionState) recordAttempt(command string, exitCode int) {
	s.LastCommand = &command
	s.LastExitCode = &exitCode
}
