package vector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/deckwise-ai/deckwise/internal/core"
)

// PGStore is a pgvector-backed core.VectorStore. Each collection is its own
// table so vector dimensions stay homogeneous per embedding provider.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// collectionName guards table names, which cannot be query parameters.
var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// EnsureCollection creates the collection table and its ANN index if absent.
func (s *PGStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if err := validCollection(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			doc_id      TEXT NOT NULL,
			page_no     INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			text        TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, name, dimension)
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	index := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_doc ON %s (doc_id, page_no)`, name, name)
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("index collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes records in one transaction, replacing rows with matching IDs.
func (s *PGStore) Upsert(ctx context.Context, collection string, records []core.VectorRecord) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, doc_id, page_no, chunk_index, text, token_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			page_no = EXCLUDED.page_no,
			chunk_index = EXCLUDED.chunk_index,
			text = EXCLUDED.text,
			token_count = EXCLUDED.token_count,
			embedding = EXCLUDED.embedding
	`, collection)

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		p := r.Payload
		if _, err := stmt.ExecContext(ctx,
			r.ID, p.DocID, p.PageNo, p.ChunkIndex, p.Text, p.TokenCount, pgvector.NewVector(r.Vector),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert into %s: %w", collection, err)
		}
	}
	return tx.Commit()
}

// Query returns the closest matches by cosine distance, scored as similarity.
func (s *PGStore) Query(ctx context.Context, collection string, vec []float32, limit int, filter core.VectorFilter) ([]core.VectorMatch, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}

	where, args := buildFilter(filter, 2)
	q := fmt.Sprintf(`
		SELECT id, doc_id, page_no, chunk_index, text, token_count,
		       1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT %d
	`, collection, where, limit)

	queryArgs := append([]any{pgvector.NewVector(vec)}, args...)
	rows, err := s.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []core.VectorMatch
	for rows.Next() {
		var m core.VectorMatch
		if err := rows.Scan(
			&m.ID, &m.Payload.DocID, &m.Payload.PageNo, &m.Payload.ChunkIndex,
			&m.Payload.Text, &m.Payload.TokenCount, &m.Score,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteByFilter removes every row matching the filter.
func (s *PGStore) DeleteByFilter(ctx context.Context, collection string, filter core.VectorFilter) error {
	if err := validCollection(collection); err != nil {
		return err
	}

	where, args := buildFilter(filter, 1)
	if where == "" {
		return fmt.Errorf("delete from %s requires a filter", collection)
	}

	q := fmt.Sprintf(`DELETE FROM %s %s`, collection, where)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

// buildFilter renders the filter as a WHERE clause with placeholders starting
// at the given index.
func buildFilter(filter core.VectorFilter, firstArg int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.DocID != "" {
		conds = append(conds, fmt.Sprintf("doc_id = $%d", firstArg+len(args)))
		args = append(args, filter.DocID)
	}
	if filter.PageNo != nil {
		conds = append(conds, fmt.Sprintf("page_no = $%d", firstArg+len(args)))
		args = append(args, *filter.PageNo)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var _ core.VectorStore = (*PGStore)(nil)
