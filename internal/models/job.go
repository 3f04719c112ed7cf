package models

import "time"

// Job lifecycle states. PENDING and RUNNING are the only non-terminal states.
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Log levels reported by workers. Progress-level messages drive the derived
// unit counters; everything else is stored verbatim.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelProgress = "progress"
	LevelSummary  = "summary"
)

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state.
func Terminal(s string) bool {
	return s == StatusCompleted || s == StatusFailed
}

// LogEntry is one worker-reported event. Entries are kept in arrival order
// and never removed.
type LogEntry struct {
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// JobRecord is the authoritative state of one unit of work.
type JobRecord struct {
	ID               int64      `json:"id"`
	PayloadRef       string     `json:"payloadRef"`
	FileName         string     `json:"fileName"`
	DelaySeconds     float64    `json:"delaySeconds"`
	Status           string     `json:"status"`
	Log              []LogEntry `json:"log"`
	Summary          string     `json:"summary,omitempty"`
	ResultPayloadRef string     `json:"resultPayloadRef,omitempty"`
	TotalUnits       int        `json:"totalUnits"`
	CompletedUnits   int        `json:"completedUnits"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// StatusUpdate is a partial write against a JobRecord. A nil field is left
// untouched; the pointer distinguishes "omitted" from "set to the zero
// value".
type StatusUpdate struct {
	Status           *string
	Summary          *string
	ResultPayloadRef *string
}
