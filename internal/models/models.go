package models

import (
	"fmt"
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Document represents an uploaded PDF deck.
//
// PageCount is 0 until ingestion has opened the file; the completion and
// failure flags are written by the ingestion pipeline only.
type Document struct {
	ID                   string     `db:"id" json:"id"`
	OwnerID              string     `db:"owner_id" json:"owner_id"`
	Title                string     `db:"title" json:"title"`
	StorageURL           string     `db:"storage_url" json:"storage_url"`
	PageCount            int        `db:"page_count" json:"page_count"`
	IngestionCompleted   bool       `db:"ingestion_completed" json:"ingestion_completed"`
	IngestionCompletedAt *time.Time `db:"ingestion_completed_at" json:"ingestion_completed_at,omitempty"`
	IngestionFailed      bool       `db:"ingestion_failed" json:"ingestion_failed"`
	IngestionError       string     `db:"ingestion_error" json:"ingestion_error,omitempty"`
	EmbeddingProvider    string     `db:"embedding_provider" json:"embedding_provider,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// Page is one ingested page of a document. A page that failed processing is
// still written, with Ready=false and Error populated; pages are never absent.
type Page struct {
	ID               string    `db:"id" json:"id"`
	DocumentID       string    `db:"document_id" json:"document_id"`
	PageNo           int       `db:"page_no" json:"page_no"`
	Text             string    `db:"text" json:"text"`
	Summary          string    `db:"summary" json:"summary"`
	KeyTerms         []string  `db:"key_terms" json:"key_terms"`
	PreviewImagePath string    `db:"preview_image_path" json:"preview_image_path"`
	Ready            bool      `db:"ready" json:"ready"`
	Error            string    `db:"error" json:"error,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// PageID derives the deterministic page identifier so re-running ingestion
// overwrites prior records instead of duplicating them.
func PageID(docID string, pageNo int) string {
	return fmt.Sprintf("%s_page_%d", docID, pageNo)
}

// Citation maps an inline marker in a generated answer back to the chunk that
// supports it.
type Citation struct {
	PageNo     int    `json:"page_no"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkID    string `json:"chunk_id"`
	Text       string `json:"text"`
}

// QARecord is one completed question/answer exchange; immutable once created.
type QARecord struct {
	ID                string     `db:"id" json:"id"`
	DocumentID        string     `db:"document_id" json:"document_id"`
	PageNo            int        `db:"page_no" json:"page_no"`
	UserID            string     `db:"user_id" json:"user_id"`
	Question          string     `db:"question" json:"question"`
	Answer            string     `db:"answer" json:"answer"`
	ScopeMode         string     `db:"scope_mode" json:"scope_mode"`
	Citations         []Citation `db:"citations" json:"citations"`
	LLMProvider       string     `db:"llm_provider" json:"llm_provider"`
	EmbeddingProvider string     `db:"embedding_provider" json:"embedding_provider"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// JobStatus is the lifecycle state of a background ingestion job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is the in-process record of one background ingestion run. Jobs exist
// only for the lifetime of the process and are not persisted.
type Job struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
