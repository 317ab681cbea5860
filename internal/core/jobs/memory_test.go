package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckwise-ai/deckwise/internal/models"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()

	job := store.Create("doc1")
	require.NotEmpty(t, job.ID)
	assert.Equal(t, "doc1", job.DocumentID)
	assert.Equal(t, models.JobRunning, job.Status)
	assert.Nil(t, job.CompletedAt)

	store.Complete(job.ID)

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestMemoryStoreFail(t *testing.T) {
	store := NewMemoryStore()
	job := store.Create("doc1")

	store.Fail(job.ID, "pdf is corrupt")

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, "pdf is corrupt", got.Error)
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	// Finishing an unknown job is a no-op, not a panic.
	store.Complete("nope")
	store.Fail("nope", "x")
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	job := store.Create("doc1")

	job.Status = models.JobFailed

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, got.Status)
}
