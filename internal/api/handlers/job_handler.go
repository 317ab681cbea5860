package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deckwise-ai/deckwise/internal/core/jobs"
)

type JobHandler struct {
	jobs jobs.Store
}

func NewJobHandler(jobStore jobs.Store) *JobHandler {
	return &JobHandler{jobs: jobStore}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "job_id"))
	if errors.Is(err, jobs.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
