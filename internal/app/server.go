package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deckwise-ai/deckwise/internal/api/handlers"
	appMiddleware "github.com/deckwise-ai/deckwise/internal/api/middlewares"
	"github.com/deckwise-ai/deckwise/internal/config"
	"github.com/deckwise-ai/deckwise/internal/core/jobs"
	"github.com/deckwise-ai/deckwise/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	users *services.UserService,
	documents *services.DocumentService,
	pages *services.PageService,
	qa *services.QAService,
	search *services.SearchService,
	ingest *services.IngestService,
	jobStore jobs.Store,
) *Server {
	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret)
	docHandler := handlers.NewDocumentHandler(documents, ingest, cfg)
	pageHandler := handlers.NewPageHandler(documents, pages)
	qaHandler := handlers.NewQAHandler(documents, qa)
	searchHandler := handlers.NewSearchHandler(documents, search)
	jobHandler := handlers.NewJobHandler(jobStore)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints. No request timeout here: uploads and SSE
		// answer streams legitimately outlive a typical timeout budget.
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(cfg.JWTSecret))

			protected.Post("/documents/upload", docHandler.Upload)
			protected.Get("/documents", docHandler.List)
			protected.Get("/documents/{document_id}", docHandler.Get)
			protected.Delete("/documents/{document_id}", docHandler.Delete)

			protected.Get("/documents/{document_id}/pages", pageHandler.List)
			protected.Get("/documents/{document_id}/pages/{page_no}", pageHandler.Get)
			protected.Get("/documents/{document_id}/pages/{page_no}/preview", pageHandler.Preview)
			protected.Post("/documents/{document_id}/pages/{page_no}/regenerate-summary", pageHandler.RegenerateSummary)

			protected.Post("/documents/{document_id}/pages/{page_no}/qa", qaHandler.Ask)
			protected.Get("/documents/{document_id}/qa", qaHandler.History)
			protected.Get("/documents/{document_id}/search", searchHandler.Search)

			protected.Get("/jobs/{job_id}", jobHandler.Get)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
