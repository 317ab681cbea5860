package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/deckwise-ai/deckwise/internal/config"
	"github.com/deckwise-ai/deckwise/internal/core"
	"github.com/deckwise-ai/deckwise/internal/models"
)

// Store is the Postgres implementation of core.DocStore, built on pgx through
// database/sql.
type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// DB exposes the underlying pool for siblings that share the connection,
// like the pgvector index.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	_, err := s.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, nullTime(user.CreatedAt))
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Documents

const documentColumns = `
	id, owner_id, title, storage_url, page_count,
	ingestion_completed, ingestion_completed_at, ingestion_failed, ingestion_error,
	embedding_provider, created_at
`

func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents (id, owner_id, title, storage_url, page_count, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := s.db.ExecContext(ctx, q,
		doc.ID, doc.OwnerID, doc.Title, doc.StorageURL, doc.PageCount, nullTime(doc.CreatedAt))
	return err
}

func (s *Store) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	d, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// documentUpdateColumns is the whitelist of columns UpdateDocument may touch.
var documentUpdateColumns = map[string]bool{
	"title":                  true,
	"page_count":             true,
	"ingestion_completed":    true,
	"ingestion_completed_at": true,
	"ingestion_failed":       true,
	"ingestion_error":        true,
	"embedding_provider":     true,
}

func (s *Store) UpdateDocument(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	args = append(args, id)
	for col, val := range fields {
		if !documentUpdateColumns[col] {
			return fmt.Errorf("update document: column %q not allowed", col)
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	q := `UPDATE documents SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// Pages

func (s *Store) SavePage(ctx context.Context, page *models.Page) error {
	if page == nil {
		return errors.New("nil page")
	}
	terms, err := json.Marshal(orEmpty(page.KeyTerms))
	if err != nil {
		return fmt.Errorf("marshal key terms: %w", err)
	}

	const q = `
		INSERT INTO pages
			(id, document_id, page_no, text, summary, key_terms, preview_image_path, ready, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			summary = EXCLUDED.summary,
			key_terms = EXCLUDED.key_terms,
			preview_image_path = EXCLUDED.preview_image_path,
			ready = EXCLUDED.ready,
			error = EXCLUDED.error
	`
	_, err = s.db.ExecContext(ctx, q,
		page.ID, page.DocumentID, page.PageNo, page.Text, page.Summary, terms,
		page.PreviewImagePath, page.Ready, page.Error, nullTime(page.CreatedAt))
	return err
}

const pageColumns = `
	id, document_id, page_no, text, summary, key_terms, preview_image_path, ready, error, created_at
`

func (s *Store) GetPage(ctx context.Context, docID string, pageNo int) (*models.Page, error) {
	q := `SELECT ` + pageColumns + ` FROM pages WHERE document_id = $1 AND page_no = $2`

	p, err := scanPage(s.db.QueryRowContext(ctx, q, docID, pageNo))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPagesByDocument(ctx context.Context, docID string) ([]models.Page, error) {
	q := `SELECT ` + pageColumns + ` FROM pages WHERE document_id = $1 ORDER BY page_no ASC`

	rows, err := s.db.QueryContext(ctx, q, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePageSummary(ctx context.Context, pageID, summary string, keyTerms []string) error {
	terms, err := json.Marshal(orEmpty(keyTerms))
	if err != nil {
		return fmt.Errorf("marshal key terms: %w", err)
	}

	const q = `UPDATE pages SET summary = $2, key_terms = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, pageID, summary, terms)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page not found: %s", pageID)
	}
	return nil
}

func (s *Store) DeletePagesByDocument(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE document_id = $1`, docID)
	return err
}

// QA records

func (s *Store) SaveQA(ctx context.Context, qa *models.QARecord) error {
	if qa == nil {
		return errors.New("nil qa record")
	}
	citations, err := json.Marshal(orEmptyCitations(qa.Citations))
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	const q = `
		INSERT INTO qa_records
			(id, document_id, page_no, user_id, question, answer, scope_mode,
			 citations, llm_provider, embedding_provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
	`
	_, err = s.db.ExecContext(ctx, q,
		qa.ID, qa.DocumentID, qa.PageNo, qa.UserID, qa.Question, qa.Answer, qa.ScopeMode,
		citations, qa.LLMProvider, qa.EmbeddingProvider, nullTime(qa.CreatedAt))
	return err
}

func (s *Store) ListQAByDocument(ctx context.Context, docID string, offset, limit int) ([]models.QARecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, document_id, page_no, user_id, question, answer, scope_mode,
		       citations, llm_provider, embedding_provider, created_at
		FROM qa_records
		WHERE document_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, q, docID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QARecord
	for rows.Next() {
		var (
			qa        models.QARecord
			citations []byte
		)
		if err := rows.Scan(
			&qa.ID, &qa.DocumentID, &qa.PageNo, &qa.UserID, &qa.Question, &qa.Answer, &qa.ScopeMode,
			&citations, &qa.LLMProvider, &qa.EmbeddingProvider, &qa.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(citations, &qa.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
		out = append(out, qa)
	}
	return out, rows.Err()
}

func (s *Store) DeleteQAByDocument(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM qa_records WHERE document_id = $1`, docID)
	return err
}

// scanners

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d           models.Document
		completedAt sql.NullTime
		ingestErr   sql.NullString
		provider    sql.NullString
	)
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.StorageURL, &d.PageCount,
		&d.IngestionCompleted, &completedAt, &d.IngestionFailed, &ingestErr,
		&provider, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.IngestionCompletedAt = &t
	}
	d.IngestionError = ingestErr.String
	d.EmbeddingProvider = provider.String
	return &d, nil
}

func scanPage(row rowScanner) (*models.Page, error) {
	var (
		p       models.Page
		terms   []byte
		pageErr sql.NullString
	)
	if err := row.Scan(
		&p.ID, &p.DocumentID, &p.PageNo, &p.Text, &p.Summary, &terms,
		&p.PreviewImagePath, &p.Ready, &pageErr, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(terms, &p.KeyTerms); err != nil {
		return nil, fmt.Errorf("unmarshal key terms: %w", err)
	}
	p.Error = pageErr.String
	return &p, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyCitations(c []models.Citation) []models.Citation {
	if c == nil {
		return []models.Citation{}
	}
	return c
}

var _ core.DocStore = (*Store)(nil)
