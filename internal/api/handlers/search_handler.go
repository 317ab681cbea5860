package handlers

import (
	"net/http"
	"strings"

	"github.com/deckwise-ai/deckwise/internal/services"
)

type SearchHandler struct {
	documents *services.DocumentService
	search    *services.SearchService
}

func NewSearchHandler(documents *services.DocumentService, search *services.SearchService) *SearchHandler {
	return &SearchHandler{documents: documents, search: search}
}

// Search runs a keyword search across the document's Q&A history and pages.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 20)

	results, err := h.search.Search(r.Context(), doc.ID, query, limit)
	if err != nil {
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []services.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
