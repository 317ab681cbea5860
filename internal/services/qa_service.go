package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deckwise-ai/deckwise/internal/core"
	"github.com/deckwise-ai/deckwise/internal/core/ingestion_engine"
	"github.com/deckwise-ai/deckwise/internal/core/llm"
	"github.com/deckwise-ai/deckwise/internal/core/retrieval"
	"github.com/deckwise-ai/deckwise/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// EmptyRetrievalError reports that no context could be retrieved for a
// question, with a user-facing explanation of why. No answer is generated and
// nothing is persisted; the stream ends with this message as its error event.
type EmptyRetrievalError struct {
	Message string
}

func (e *EmptyRetrievalError) Error() string { return e.Message }

// AskRequest is one question against an ingested document.
type AskRequest struct {
	DocID       string
	PageNo      int
	UserID      string
	Question    string
	Scope       retrieval.Scope
	LLMProvider string
	LLMModel    string
	TopK        int
}

// QAService answers questions over indexed chunks and records the exchange.
type QAService struct {
	db              core.DocStore
	vectors         core.VectorStore
	providers       ingestion_engine.ProviderFactory
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

func NewQAService(db core.DocStore, vectors core.VectorStore, providers ingestion_engine.ProviderFactory, defaultProvider, defaultModel string) *QAService {
	return &QAService{
		db:              db,
		vectors:         vectors,
		providers:       providers,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
		logger:          slog.Default().With("component", "qa"),
	}
}

// Ask retrieves context for the question, streams the answer through onToken
// and persists the completed exchange. When retrieval comes back empty it
// returns an EmptyRetrievalError diagnosing why, without calling the LLM or
// saving a record.
func (s *QAService) Ask(ctx context.Context, req AskRequest, onToken func(string) error) (*models.QARecord, error) {
	doc, err := s.db.GetDocumentByID(ctx, req.DocID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	provider := req.LLMProvider
	if provider == "" {
		provider = s.defaultProvider
	}
	model := req.LLMModel
	if model == "" {
		model = s.defaultModel
	}
	embProvider := doc.EmbeddingProvider
	if embProvider == "" {
		embProvider = llm.EmbeddingOpenAISmall
	}

	embedder, err := s.providers.Embedder(ctx, embProvider)
	if err != nil {
		return nil, fmt.Errorf("embedding provider %s: %w", embProvider, err)
	}

	engine := retrieval.NewEngine(s.vectors, embedder, llm.CollectionForProvider(embProvider))

	queryVec, err := engine.EmbedQuery(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	results, err := engine.Retrieve(ctx, queryVec, req.DocID, req.PageNo, req.Scope, req.TopK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, &EmptyRetrievalError{Message: s.diagnoseEmpty(ctx, doc, engine, queryVec, req.PageNo)}
	}

	chat, err := s.providers.ChatClient(ctx, provider, model)
	if err != nil {
		return nil, fmt.Errorf("chat provider %s: %w", provider, err)
	}

	var answer string
	messages := retrieval.BuildMessages(results, req.Question)
	err = chat.Stream(ctx, messages, core.GenOptions{Temperature: 0.2}, func(token string) error {
		answer += token
		return onToken(token)
	})
	if err != nil {
		return nil, err
	}
	citations := retrieval.ExtractCitations(answer, results)

	record := &models.QARecord{
		ID:                uuid.NewString(),
		DocumentID:        req.DocID,
		PageNo:            req.PageNo,
		UserID:            req.UserID,
		Question:          req.Question,
		Answer:            answer,
		ScopeMode:         string(req.Scope),
		Citations:         citations,
		LLMProvider:       provider,
		EmbeddingProvider: embProvider,
		CreatedAt:         time.Now().UTC(),
	}
	// The done event advertises the record's ID as persisted history, so a
	// failed save fails the exchange rather than handing out a dangling ID.
	if err := s.db.SaveQA(ctx, record); err != nil {
		return nil, fmt.Errorf("save qa record: %w", err)
	}
	return record, nil
}

// History returns past exchanges for a document, newest first.
func (s *QAService) History(ctx context.Context, docID string, offset, limit int) ([]models.QARecord, error) {
	return s.db.ListQAByDocument(ctx, docID, offset, limit)
}

// diagnoseEmpty explains an empty retrieval. It reuses the already-computed
// query embedding to probe whether the document has any indexed chunks at all.
func (s *QAService) diagnoseEmpty(ctx context.Context, doc *models.Document, engine *retrieval.Engine, queryVec []float32, pageNo int) string {
	if !doc.IngestionCompleted {
		return "This document is still being processed. Please try again once ingestion has finished."
	}

	deckWide, err := engine.Retrieve(ctx, queryVec, doc.ID, pageNo, retrieval.ScopeDeck, 1)
	if err != nil || len(deckWide) == 0 {
		return "No content from this document has been indexed yet, so I can't answer questions about it."
	}
	return fmt.Sprintf("I couldn't find any indexed content for page %d. Try asking with deck-wide scope instead.", pageNo)
}
