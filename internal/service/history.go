package service

import (
	"time"

	"github.com/ignatij/memoflow/internal/log"
	"github.com/ignatij/memoflow/pkg/history"
	"github.com/ignatij/memoflow/pkg/models"
	"github.com/pkg/errors"
)

// HistoryService exposes the run-history bookkeeping behind validation and
// transaction discipline.
type HistoryService struct {
	store history.Store
}

func NewHistoryService(store history.Store) *HistoryService {
	return &HistoryService{store: store}
}

// RecordRun persists a new run record and returns its ID.
func (s *HistoryService) RecordRun(taskName, identity string, status models.RunStatus) (id int64, err error) {
	if taskName == "" {
		return 0, errors.New("task name cannot be empty")
	}
	if identity == "" {
		return 0, errors.New("task identity cannot be empty")
	}
	if !validStatus(status) {
		return 0, errors.Errorf("invalid status %q", status)
	}
	txStore, err := s.store.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				log.GetLogger().Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			log.GetLogger().Errorf("Failed to commit: %v", commitErr)
			err = commitErr // Update the named return value
		}
	}()

	now := time.Now()
	run := models.Run{
		TaskName:  taskName,
		Identity:  identity,
		Status:    status,
		CreatedAt: now,
	}
	if status == models.RunningRunStatus {
		run.StartedAt = &now
	}
	id, err = txStore.SaveRun(run)
	if err != nil {
		return 0, err
	}
	log.GetLogger().Infof("Recorded %s run of task '%s' with ID %d", status, taskName, id)
	return id, nil
}

// UpdateRunStatus updates the status of an existing run by ID.
func (s *HistoryService) UpdateRunStatus(id int64, status string, errorMsg string) (err error) {
	if id <= 0 {
		return errors.New("run ID must be positive")
	}
	runStatus := models.RunStatus(status)
	if !validStatus(runStatus) {
		return errors.New("invalid status; must be 'PENDING', 'RUNNING', 'COMPLETED', 'FAILED' or 'SKIPPED'")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				log.GetLogger().Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			log.GetLogger().Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	// Fetch existing run to ensure it exists
	run, err := txStore.GetRun(id)
	if err != nil {
		return err
	}
	if err = txStore.UpdateRunStatus(run.ID, runStatus, errorMsg); err != nil {
		return err
	}

	log.GetLogger().Infof("Updated run ID %d to status '%s'", id, status)
	return nil
}

func (s *HistoryService) GetRun(id int64) (models.Run, error) {
	if id <= 0 {
		return models.Run{}, errors.New("run ID must be positive")
	}
	return s.store.GetRun(id)
}

// ListRuns returns runs, most recent first; an empty taskName lists all.
func (s *HistoryService) ListRuns(taskName string) ([]models.Run, error) {
	return s.store.ListRuns(taskName)
}

func validStatus(status models.RunStatus) bool {
	switch status {
	case models.PendingRunStatus, models.RunningRunStatus,
		models.CompletedRunStatus, models.FailedRunStatus, models.SkippedRunStatus:
		return true
	}
	return false
}
