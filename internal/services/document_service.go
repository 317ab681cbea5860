package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/deckwise-ai/deckwise/internal/core"
	"github.com/deckwise-ai/deckwise/internal/core/llm"
	"github.com/deckwise-ai/deckwise/internal/models"
)

type DocumentService struct {
	db         core.DocStore
	storage    core.ObjectClient
	vectors    core.VectorStore
	bucket     string
	previewDir string
	logger     *slog.Logger
}

func NewDocumentService(db core.DocStore, storage core.ObjectClient, vectors core.VectorStore, bucket, previewDir string) *DocumentService {
	return &DocumentService{
		db:         db,
		storage:    storage,
		vectors:    vectors,
		bucket:     bucket,
		previewDir: previewDir,
		logger:     slog.Default().With("component", "documents"),
	}
}

// UploadAndCreate streams the PDF to object storage and creates the document
// record. Ingestion is scheduled separately by the caller.
func (s *DocumentService) UploadAndCreate(ctx context.Context, ownerID, title, filename, contentType string, data io.Reader) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(ownerID, docID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	doc := &models.Document{
		ID:         docID,
		OwnerID:    ownerID,
		Title:      title,
		StorageURL: url,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

func (s *DocumentService) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	return s.db.ListDocumentsByOwner(ctx, ownerID)
}

// Delete removes the document and everything derived from it: vectors, pages,
// QA history, previews and the stored PDF. Cleanup of derived artifacts is
// best effort; only the record deletion itself can fail the call.
func (s *DocumentService) Delete(ctx context.Context, doc *models.Document) error {
	if doc.EmbeddingProvider != "" {
		collection := llm.CollectionForProvider(doc.EmbeddingProvider)
		if err := s.vectors.DeleteByFilter(ctx, collection, core.VectorFilter{DocID: doc.ID}); err != nil {
			s.logger.Warn("delete vectors failed", "doc_id", doc.ID, "err", err)
		}
	}

	if key, err := objectKeyFromURL(doc.StorageURL); err == nil {
		if err := s.storage.DeleteFile(ctx, s.bucket, key); err != nil {
			s.logger.Warn("delete stored pdf failed", "doc_id", doc.ID, "err", err)
		}
	}

	if err := os.RemoveAll(filepath.Join(s.previewDir, doc.ID)); err != nil {
		s.logger.Warn("delete previews failed", "doc_id", doc.ID, "err", err)
	}

	if err := s.db.DeleteQAByDocument(ctx, doc.ID); err != nil {
		s.logger.Warn("delete qa history failed", "doc_id", doc.ID, "err", err)
	}
	if err := s.db.DeletePagesByDocument(ctx, doc.ID); err != nil {
		s.logger.Warn("delete pages failed", "doc_id", doc.ID, "err", err)
	}

	return s.db.DeleteDocument(ctx, doc.ID)
}

func (s *DocumentService) GetPage(ctx context.Context, docID string, pageNo int) (*models.Page, error) {
	return s.db.GetPage(ctx, docID, pageNo)
}

func (s *DocumentService) ListPages(ctx context.Context, docID string) ([]models.Page, error) {
	return s.db.ListPagesByDocument(ctx, docID)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(ownerID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", ownerID, "documents", docID, filename)
}

// objectKeyFromURL extracts the key from a virtual-hosted S3 URL.
func objectKeyFromURL(storageURL string) (string, error) {
	hostPath := strings.SplitN(strings.TrimPrefix(storageURL, "https://"), "/", 2)
	if len(hostPath) != 2 || hostPath[1] == "" {
		return "", fmt.Errorf("no key in storage url %q", storageURL)
	}
	return hostPath[1], nil
}
