package audit

// Operations recorded in the log.
const (
	OpStart = "start"
	OpExec  = "exec"
	OpCd    = "cd"
)

// Decisions recorded in the log.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
	DecisionError = "error"
)

// Entry is one line in the hash-chained JSONL audit log.
// Fields are plain structs and slices (no map[string]any) so json.Marshal
// output is deterministic and the chain hashes reproduce.
type Entry struct {
	Timestamp  string   `json:"ts"`
	SessionID  string   `json:"session_id"`
	Op         string   `json:"op"`
	Command    string   `json:"command,omitempty"`
	Args       []string `json:"args,omitempty"`
	Path       string   `json:"path,omitempty"`
	Cwd        string   `json:"cwd"`
	Decision   string   `json:"decision"`
	Rule       string   `json:"rule,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	ExitCode   *int     `json:"exit_code,omitempty"`
	TimedOut   bool     `json:"timed_out,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	PolicyHash string   `json:"policy_hash"`
	PrevHash   string   `json:"prev_hash"`
}

// Subject is the command line or path the entry is about.
func (e Entry) Subject() string {
	if e.Op != OpExec {
		return e.Path
	}
	line := e.Command
	for _, a := range e.Args {
		line += " " + a
	}
	return line
}
