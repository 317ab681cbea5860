package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	middleware "github.com/deckwise-ai/deckwise/internal/api/middlewares"
	"github.com/deckwise-ai/deckwise/internal/config"
	"github.com/deckwise-ai/deckwise/internal/models"
	"github.com/deckwise-ai/deckwise/internal/services"
)

type DocumentHandler struct {
	documents *services.DocumentService
	ingest    *services.IngestService
	cfg       *config.Config
	logger    *slog.Logger
}

func NewDocumentHandler(documents *services.DocumentService, ingest *services.IngestService, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		ingest:    ingest,
		cfg:       cfg,
		logger:    slog.Default().With("component", "api"),
	}
}

// Upload stores the PDF, creates the document record and schedules ingestion.
// Responds 202 with the document and the job to poll.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(52 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		http.Error(w, "only PDF files are supported", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	doc, err := h.documents.UploadAndCreate(uploadCtx, userID, title, filename, contentType, file)
	if err != nil {
		h.logger.Error("upload failed", "err", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	embProvider := r.FormValue("embedding_provider")
	if embProvider == "" {
		embProvider = h.cfg.EmbeddingProvider
	}
	llmProvider := r.FormValue("llm_provider")
	if llmProvider == "" {
		llmProvider = h.cfg.DefaultLLMProvider
	}

	jobID, err := h.ingest.Enqueue(doc.ID, embProvider, llmProvider, r.FormValue("llm_model"))
	if err != nil {
		h.logger.Error("schedule ingestion failed", "doc_id", doc.ID, "err", err)
		http.Error(w, "could not schedule ingestion", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"document": doc,
		"job_id":   jobID,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	documents, err := h.documents.ListByOwner(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if documents == nil {
		documents = []models.Document{}
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), doc); err != nil {
		h.logger.Error("delete document failed", "doc_id", doc.ID, "err", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	return ownedDocument(w, r, h.documents)
}
