package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deckwise-ai/deckwise/internal/models"
)

// sseEvent is one server-sent event on a QA stream. Type is "token", "done"
// or "error"; the remaining fields depend on it.
type sseEvent struct {
	Type      string            `json:"type"`
	Token     string            `json:"token,omitempty"`
	QAID      string            `json:"qa_id,omitempty"`
	Citations []models.Citation `json:"citations,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// sseWriter writes JSON events in text/event-stream framing, flushing after
// each one so tokens reach the client as they are generated.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) Send(ev sseEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
