package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deckwise-ai/deckwise/internal/core"
	"github.com/deckwise-ai/deckwise/internal/core/ingestion_engine"
	"github.com/deckwise-ai/deckwise/internal/core/summary"
	"github.com/deckwise-ai/deckwise/internal/models"
)

var ErrPageNotFound = errors.New("page not found")

// PageService serves ingested pages and regenerates their summaries.
type PageService struct {
	db              core.DocStore
	providers       ingestion_engine.ProviderFactory
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

func NewPageService(db core.DocStore, providers ingestion_engine.ProviderFactory, defaultProvider, defaultModel string) *PageService {
	return &PageService{
		db:              db,
		providers:       providers,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
		logger:          slog.Default().With("component", "pages"),
	}
}

func (s *PageService) Get(ctx context.Context, docID string, pageNo int) (*models.Page, error) {
	page, err := s.db.GetPage(ctx, docID, pageNo)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrPageNotFound
	}
	return page, nil
}

func (s *PageService) List(ctx context.Context, docID string) ([]models.Page, error) {
	return s.db.ListPagesByDocument(ctx, docID)
}

// RegenerateSummary re-runs summarization over the page's stored text and
// persists the result. The page text itself is not re-extracted.
func (s *PageService) RegenerateSummary(ctx context.Context, docID string, pageNo int, llmProvider, llmModel string) (*models.Page, error) {
	page, err := s.Get(ctx, docID, pageNo)
	if err != nil {
		return nil, err
	}

	provider := llmProvider
	if provider == "" {
		provider = s.defaultProvider
	}
	model := llmModel
	if model == "" {
		model = s.defaultModel
	}

	chat, err := s.providers.ChatClient(ctx, provider, model)
	if err != nil {
		return nil, fmt.Errorf("chat provider %s: %w", provider, err)
	}

	sum, terms := summary.NewSummarizer(chat).Summarize(ctx, page.Text, pageNo)
	if err := s.db.UpdatePageSummary(ctx, page.ID, sum, terms); err != nil {
		return nil, err
	}

	page.Summary = sum
	page.KeyTerms = terms
	s.logger.Info("summary regenerated", "page_id", page.ID, "provider", provider)
	return page, nil
}
