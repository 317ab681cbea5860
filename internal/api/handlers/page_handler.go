package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/deckwise-ai/deckwise/internal/models"
	"github.com/deckwise-ai/deckwise/internal/services"
)

type PageHandler struct {
	documents *services.DocumentService
	pages     *services.PageService
	logger    *slog.Logger
}

func NewPageHandler(documents *services.DocumentService, pages *services.PageService) *PageHandler {
	return &PageHandler{
		documents: documents,
		pages:     pages,
		logger:    slog.Default().With("component", "api"),
	}
}

func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}

	pages, err := h.pages.List(r.Context(), doc.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if pages == nil {
		pages = []models.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}
	pageNo, ok := pageNoParam(w, r)
	if !ok {
		return
	}

	page, err := h.pages.Get(r.Context(), doc.ID, pageNo)
	if err == services.ErrPageNotFound {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Preview serves the page's rendered PNG.
func (h *PageHandler) Preview(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}
	pageNo, ok := pageNoParam(w, r)
	if !ok {
		return
	}

	page, err := h.pages.Get(r.Context(), doc.ID, pageNo)
	if err == services.ErrPageNotFound {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if page.PreviewImagePath == "" {
		http.Error(w, "no preview for this page", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, page.PreviewImagePath)
}

type regenerateSummaryRequest struct {
	LLMProvider string `json:"llm_provider"`
	LLMModel    string `json:"llm_model"`
}

func (h *PageHandler) RegenerateSummary(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}
	pageNo, ok := pageNoParam(w, r)
	if !ok {
		return
	}

	var req regenerateSummaryRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	page, err := h.pages.RegenerateSummary(r.Context(), doc.ID, pageNo, req.LLMProvider, req.LLMModel)
	if err == services.ErrPageNotFound {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("regenerate summary failed", "doc_id", doc.ID, "page_no", pageNo, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
