package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ignatij/memoflow/pkg/history"
	"github.com/ignatij/memoflow/pkg/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// PostgresStore persists run history in the runs table.
type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (history.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// SaveRun creates a new run record and returns its ID
func (s *PostgresStore) SaveRun(r models.Run) (int64, error) {
	var runID int64
	err := s.db.QueryRowx(`
		INSERT INTO runs (task_name, identity, status, error_msg, started_at, finished_at, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		r.TaskName, r.Identity, r.Status, r.ErrorMsg, r.StartedAt, r.FinishedAt, r.ElapsedMS, r.CreatedAt).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	return runID, nil
}

// GetRun retrieves a run by ID
func (s *PostgresStore) GetRun(id int64) (models.Run, error) {
	var run models.Run
	err := s.db.Get(&run, "SELECT * FROM runs WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Run{}, history.ErrNotFound
	}
	if err != nil {
		return models.Run{}, fmt.Errorf("get run %d: %w", id, err)
	}
	return run, nil
}

// ListRuns retrieves runs, most recent first. An empty taskName lists all.
func (s *PostgresStore) ListRuns(taskName string) ([]models.Run, error) {
	runs := []models.Run{}
	if taskName == "" {
		if err := s.db.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC, id DESC"); err != nil {
			return nil, err
		}
		return runs, nil
	}
	err := s.db.Select(&runs, "SELECT * FROM runs WHERE task_name = $1 ORDER BY created_at DESC, id DESC", taskName)
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// UpdateRunStatus updates the status and error message of a run
func (s *PostgresStore) UpdateRunStatus(id int64, status models.RunStatus, errorMsg string) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = $1,
		error_msg = $2,
		finished_at = CASE WHEN $3 IN ('COMPLETED', 'FAILED') THEN CURRENT_TIMESTAMP ELSE finished_at END
		WHERE id = $4`,
		// PostgreSQL interprets the parameters in the CASE clause as separate so passing the status twice
		status, errorMsg, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return history.ErrNotFound
	}
	return nil
}

// FinishRun marks a run finished with its terminal status and elapsed time
func (s *PostgresStore) FinishRun(id int64, status models.RunStatus, errorMsg string, elapsed time.Duration) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = $1,
		error_msg = $2,
		finished_at = CURRENT_TIMESTAMP,
		elapsed_ms = $3
		WHERE id = $4`,
		status, errorMsg, elapsed.Milliseconds(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return history.ErrNotFound
	}
	return nil
}
