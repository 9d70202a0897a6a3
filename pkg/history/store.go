package history

import (
	"time"

	"github.com/ignatij/memoflow/pkg/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store defines the run-history operations. Recording history is auxiliary
// bookkeeping: failures here must never mask a task's own outcome.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// SaveRun persists a new run record and returns its ID.
	SaveRun(r models.Run) (int64, error)
	// GetRun retrieves a run by ID.
	GetRun(id int64) (models.Run, error)
	// ListRuns returns runs, most recent first. An empty taskName lists
	// all runs.
	ListRuns(taskName string) ([]models.Run, error)
	// UpdateRunStatus updates the status and error message of a run.
	UpdateRunStatus(id int64, status models.RunStatus, errorMsg string) error
	// FinishRun marks a run finished with its terminal status and elapsed
	// wall-clock duration.
	FinishRun(id int64, status models.RunStatus, errorMsg string, elapsed time.Duration) error
}
