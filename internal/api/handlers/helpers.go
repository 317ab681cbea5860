package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	middleware "github.com/deckwise-ai/deckwise/internal/api/middlewares"
	"github.com/deckwise-ai/deckwise/internal/models"
	"github.com/deckwise-ai/deckwise/internal/services"
)

// ownedDocument loads the document named in the URL and enforces ownership.
// On failure it writes the error response and returns ok=false.
func ownedDocument(w http.ResponseWriter, r *http.Request, documents *services.DocumentService) (*models.Document, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	docID := chi.URLParam(r, "document_id")
	doc, err := documents.Get(r.Context(), docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if doc.OwnerID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return doc, true
}

// pageNoParam parses the page_no URL parameter.
func pageNoParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	pageNo, err := strconv.Atoi(chi.URLParam(r, "page_no"))
	if err != nil || pageNo < 0 {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return 0, false
	}
	return pageNo, true
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
