package models

// RunStatus is the lifecycle state of an asynchronous search.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// Terminal reports whether the run can no longer change.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed || s == RunCancelled
}

// RunEvent is published when a run reaches a terminal state.
type RunEvent struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	Status      RunStatus `json:"status"`
	Seed        int64     `json:"seed"`
	Penalty     int       `json:"penalty"`
	Perfect     bool      `json:"perfect"`
	Generations int       `json:"generations"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	Error       string    `json:"error,omitempty"`
}
