package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deckwise-ai/deckwise/internal/models"
)

// MemoryStore is the in-process Store implementation. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

func (s *MemoryStore) Create(documentID string) *models.Job {
	now := time.Now().UTC()
	job := &models.Job{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Status:     models.JobRunning,
		CreatedAt:  now,
		StartedAt:  now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	copied := *job
	return &copied
}

func (s *MemoryStore) Get(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryStore) Complete(id string) {
	s.finish(id, models.JobCompleted, "")
}

func (s *MemoryStore) Fail(id, errMsg string) {
	s.finish(id, models.JobFailed, errMsg)
}

func (s *MemoryStore) finish(id string, status models.JobStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
}

var _ Store = (*MemoryStore)(nil)
