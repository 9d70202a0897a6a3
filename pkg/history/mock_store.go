package history

import (
	"sync"
	"time"

	"github.com/ignatij/memoflow/pkg/models"
)

// mockStore implements Store with in-memory storage for tests and the
// no-database composition root.
type mockStore struct {
	mu     sync.Mutex
	runs   []models.Run
	nextID int64
}

func NewMockStore() Store {
	return &mockStore{}
}

func (m *mockStore) Begin() (Store, error) {
	return m, nil
}

func (m *mockStore) Commit() error {
	return nil
}

func (m *mockStore) Rollback() error {
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

func (m *mockStore) SaveRun(r models.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	m.runs = append(m.runs, r)
	return r.ID, nil
}

func (m *mockStore) GetRun(id int64) (models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Run{}, ErrNotFound
}

func (m *mockStore) ListRuns(taskName string) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Run
	for i := len(m.runs) - 1; i >= 0; i-- {
		if taskName == "" || m.runs[i].TaskName == taskName {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *mockStore) UpdateRunStatus(id int64, status models.RunStatus, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.ID == id {
			m.runs[i].Status = status
			m.runs[i].ErrorMsg = errorMsg
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) FinishRun(id int64, status models.RunStatus, errorMsg string, elapsed time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.ID == id {
			now := time.Now()
			m.runs[i].Status = status
			m.runs[i].ErrorMsg = errorMsg
			m.runs[i].FinishedAt = &now
			m.runs[i].ElapsedMS = elapsed.Milliseconds()
			return nil
		}
	}
	return ErrNotFound
}
