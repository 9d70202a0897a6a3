package models

import "time"

type RunStatus string

const (
	PendingRunStatus   RunStatus = "PENDING"
	RunningRunStatus   RunStatus = "RUNNING"
	CompletedRunStatus RunStatus = "COMPLETED"
	FailedRunStatus    RunStatus = "FAILED"
	SkippedRunStatus   RunStatus = "SKIPPED"
)

// Run records one driver execution of a task node for auditing. The pair
// (task_name, identity) correlates a failed run with its cached
// re-execution.
type Run struct {
	ID         int64      `json:"id" db:"id"`                             // Auto-incremented run ID
	TaskName   string     `json:"task_name" db:"task_name"`               // Class name of the node
	Identity   string     `json:"identity" db:"identity"`                 // Content-addressed identity hash
	Status     RunStatus  `json:"status" db:"status"`                     // "PENDING", "RUNNING", "COMPLETED", "FAILED", "SKIPPED"
	ErrorMsg   string     `json:"error,omitempty" db:"error_msg"`         // Last error message (optional)
	StartedAt  *time.Time `json:"started_at,omitempty" db:"started_at"`   // Nullable start time
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"` // Nullable end time
	ElapsedMS  int64      `json:"elapsed_ms" db:"elapsed_ms"`             // Wall-clock duration in milliseconds
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`             // Creation timestamp
}
