package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/dbx"
)

// PostgresStore keeps every document as a JSONB row of the documents table.
// Query is served by a containment filter backed by a GIN index.
type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, path string, out any) (bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	query := `INSERT INTO documents (path, collection, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (path)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, path, collectionOf(path), string(raw)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update merges fields into the stored object with the jsonb || operator, so
// concurrent writers of different fields do not overwrite each other.
func (s *PostgresStore) Update(ctx context.Context, path string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	query := `INSERT INTO documents (path, collection, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (path)
		DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, path, collectionOf(path), string(raw)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, path string) error {
	query := `DELETE FROM documents WHERE path = $1 OR starts_with(path, $2)`
	if _, err := s.db.ExecContext(ctx, query, path, path+"/"); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection, field string, value any, out any) error {
	filter, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return fmt.Errorf("encode query value: %w", err)
	}

	query := `SELECT data FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY path`
	return s.selectAll(ctx, out, query, collection, string(filter))
}

// QueryAtMost inlines collection and field so the filter matches partial
// expression indexes such as documents_trash_expiry_idx.
func (s *PostgresStore) QueryAtMost(ctx context.Context, collection, field string, max int64, out any) error {
	if err := checkIdentifier(collection); err != nil {
		return err
	}
	if err := checkIdentifier(field); err != nil {
		return err
	}

	query := `SELECT data FROM documents WHERE collection = '` + collection +
		`' AND (data ->> '` + field + `')::bigint <= $1 ORDER BY path`
	return s.selectAll(ctx, out, query, max)
}

func (s *PostgresStore) List(ctx context.Context, collection string, out any) error {
	query := `SELECT data FROM documents WHERE collection = $1 ORDER BY path`
	return s.selectAll(ctx, out, query, collection)
}

func (s *PostgresStore) selectAll(ctx context.Context, out any, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	docs := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		docs = append(docs, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return decodeAll(docs, out)
}
