package core

import (
	"context"
	"io"

	"github.com/deckwise-ai/deckwise/internal/models"
)

// DocStore defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DocStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error)
	// UpdateDocument applies a partial field update; keys are column names
	// from a fixed whitelist. Unknown keys are rejected.
	UpdateDocument(ctx context.Context, id string, fields map[string]any) error
	DeleteDocument(ctx context.Context, id string) error

	// SavePage upserts by the page's deterministic ID.
	SavePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, docID string, pageNo int) (*models.Page, error)
	ListPagesByDocument(ctx context.Context, docID string) ([]models.Page, error)
	UpdatePageSummary(ctx context.Context, pageID, summary string, keyTerms []string) error
	DeletePagesByDocument(ctx context.Context, docID string) error

	SaveQA(ctx context.Context, qa *models.QARecord) error
	ListQAByDocument(ctx context.Context, docID string, offset, limit int) ([]models.QARecord, error)
	DeleteQAByDocument(ctx context.Context, docID string) error

	Close() error
}

// ChunkPayload is the metadata stored alongside each chunk vector. The
// (DocID, PageNo, ChunkIndex) triple is the chunk's stable identity.
type ChunkPayload struct {
	DocID      string `json:"doc_id"`
	PageNo     int    `json:"page_no"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// VectorRecord is one upsert unit for the vector store.
type VectorRecord struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// VectorMatch is one ranked query hit. Score is similarity (1 - cosine distance).
type VectorMatch struct {
	ID      string
	Score   float32
	Payload ChunkPayload
}

// VectorFilter is an equality filter over payload fields. A nil PageNo means
// "any page". Range conditions are not supported.
type VectorFilter struct {
	DocID  string
	PageNo *int
}

// VectorStore abstracts the nearest-neighbor index (pgvector here, but the
// pipeline and retrieval engine only see this interface).
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, collection string, records []VectorRecord) error
	Query(ctx context.Context, collection string, vector []float32, limit int, filter VectorFilter) ([]VectorMatch, error)
	DeleteByFilter(ctx context.Context, collection string, filter VectorFilter) error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
