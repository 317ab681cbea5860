package jobs

import (
	"errors"

	"github.com/deckwise-ai/deckwise/internal/models"
)

// ErrNotFound marks a lookup for a job this process never created. Jobs are
// in-memory only, so a restart legitimately forgets them.
var ErrNotFound = errors.New("job not found")

// Store tracks background ingestion jobs for the lifetime of the process.
type Store interface {
	// Create registers a new running job for the document and returns it.
	Create(documentID string) *models.Job

	// Get returns a copy of the job, or ErrNotFound.
	Get(id string) (*models.Job, error)

	// Complete marks the job completed and stamps its completion time.
	Complete(id string)

	// Fail marks the job failed with the given error message.
	Fail(id string, errMsg string)
}
