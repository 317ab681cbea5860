package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	middleware "github.com/deckwise-ai/deckwise/internal/api/middlewares"
	"github.com/deckwise-ai/deckwise/internal/core/retrieval"
	"github.com/deckwise-ai/deckwise/internal/models"
	"github.com/deckwise-ai/deckwise/internal/services"
)

type QAHandler struct {
	documents *services.DocumentService
	qa        *services.QAService
	logger    *slog.Logger
}

func NewQAHandler(documents *services.DocumentService, qa *services.QAService) *QAHandler {
	return &QAHandler{
		documents: documents,
		qa:        qa,
		logger:    slog.Default().With("component", "api"),
	}
}

type askRequest struct {
	Question    string `json:"question"`
	Scope       string `json:"scope"`
	LLMProvider string `json:"llm_provider"`
	LLMModel    string `json:"llm_model"`
	TopK        int    `json:"top_k"`
}

// Ask answers a question over the document, streaming tokens as server-sent
// events and finishing with a done event carrying the QA record ID and
// citations. Errors after streaming has begun arrive as error events, since
// the status line is already gone.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}
	pageNo, ok := pageNoParam(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(r.Context())

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	record, err := h.qa.Ask(r.Context(), services.AskRequest{
		DocID:       doc.ID,
		PageNo:      pageNo,
		UserID:      userID,
		Question:    req.Question,
		Scope:       retrieval.ParseScope(req.Scope),
		LLMProvider: req.LLMProvider,
		LLMModel:    req.LLMModel,
		TopK:        req.TopK,
	}, func(token string) error {
		return stream.Send(sseEvent{Type: "token", Token: token})
	})
	var emptyErr *services.EmptyRetrievalError
	if errors.As(err, &emptyErr) {
		_ = stream.Send(sseEvent{Type: "error", Message: emptyErr.Message})
		return
	}
	if err != nil {
		h.logger.Error("qa failed", "doc_id", doc.ID, "err", err)
		msg := "answer generation failed"
		if errors.Is(err, services.ErrDocumentNotFound) {
			msg = "document not found"
		}
		_ = stream.Send(sseEvent{Type: "error", Message: msg})
		return
	}

	_ = stream.Send(sseEvent{
		Type:      "done",
		QAID:      record.ID,
		Citations: record.Citations,
	})
}

// History returns past exchanges for the document, newest first.
func (h *QAHandler) History(w http.ResponseWriter, r *http.Request) {
	doc, ok := ownedDocument(w, r, h.documents)
	if !ok {
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)

	records, err := h.qa.History(r.Context(), doc.ID, offset, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.QARecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
