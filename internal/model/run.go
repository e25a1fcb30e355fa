package model

import "time"

// RunStatus is the lifecycle state of an agent runtime.
type RunStatus string

const (
	RunStatusIdle        RunStatus = "idle"
	RunStatusRunning     RunStatus = "running"
	RunStatusStopped     RunStatus = "stopped"
	RunStatusCrashed     RunStatus = "crashed"
	RunStatusFailedStart RunStatus = "failed_start"
)

// IsTerminal reports whether the runtime can no longer run cycles.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusStopped || s == RunStatusCrashed || s == RunStatusFailedStart
}

// AgentReport is the orchestrator's record of one agent's run.
type AgentReport struct {
	Name      string        `json:"name"`
	Role      AgentRole     `json:"role"`
	Status    RunStatus     `json:"status"`
	Cycles    int64         `json:"cycles"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
