package session

import "time"

// Status values for a recorded mock server session
const (
	StatusCreated = "created"
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Session records one mock server launched by wiremockctl
type Session struct {
	ID             string     `json:"id"`
	Port           string     `json:"port"`
	StandalonePath string     `json:"standalone_path"`
	Version        string     `json:"version"`
	Arguments      []string   `json:"arguments"`
	Command        string     `json:"command"`
	PID            int        `json:"pid"`
	PIDCreateTime  int64      `json:"pid_create_time,omitempty"` // ms since epoch
	Status         string     `json:"status"`                    // "created", "running", "stopped"
	StartedAt      time.Time  `json:"started_at"`
	LogFile        string     `json:"log_file,omitempty"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	ExitReason     string     `json:"exit_reason,omitempty"` // "normal" | "failed" | "killed" | "gone"
}

// BaseURL returns the admin base URL of the session's server
func (s *Session) BaseURL() string {
	return "http://localhost:" + s.Port
}

// MarkStopped sets the stopped status, time and reason
func (s *Session) MarkStopped(reason string) {
	now := time.Now()
	s.Status = StatusStopped
	s.StoppedAt = &now
	s.ExitReason = reason
}
