package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/deckwise-ai/deckwise/internal/core/ingestion_engine"
	"github.com/deckwise-ai/deckwise/internal/core/jobs"
)

// IngestService runs document ingestions in the background on a bounded
// worker pool and tracks each run as a job.
type IngestService struct {
	pipeline *ingestion_engine.Pipeline
	jobs     jobs.Store
	pool     *ants.Pool
	logger   *slog.Logger
}

func NewIngestService(pipeline *ingestion_engine.Pipeline, jobStore jobs.Store, poolSize int) (*IngestService, error) {
	if poolSize <= 0 {
		poolSize = 2
	}
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	return &IngestService{
		pipeline: pipeline,
		jobs:     jobStore,
		pool:     pool,
		logger:   slog.Default().With("component", "ingest"),
	}, nil
}

// Enqueue schedules ingestion for a document and returns the job ID. The run
// uses a background context: an ingestion outlives the upload request that
// triggered it.
func (s *IngestService) Enqueue(docID, embProvider, llmProvider, llmModel string) (string, error) {
	job := s.jobs.Create(docID)

	err := s.pool.Submit(func() {
		if err := s.pipeline.Ingest(context.Background(), docID, embProvider, llmProvider, llmModel); err != nil {
			s.jobs.Fail(job.ID, err.Error())
			return
		}
		s.jobs.Complete(job.ID)
	})
	if err != nil {
		s.jobs.Fail(job.ID, err.Error())
		return "", fmt.Errorf("submit ingestion: %w", err)
	}

	s.logger.Info("ingestion scheduled", "doc_id", docID, "job_id", job.ID)
	return job.ID, nil
}

func (s *IngestService) Close() {
	s.pool.Release()
}
