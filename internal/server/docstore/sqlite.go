package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/tenantdrive/internal/dbx"
)

// SQLiteStore keeps documents as JSON text rows for single-node deployments.
// Query compares json_extract of the field with the encoded value.
type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, path string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	query := `INSERT INTO documents (path, collection, data, updated_at)
		VALUES (?, ?, json(?), CURRENT_TIMESTAMP)
		ON CONFLICT (path)
		DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, path, collectionOf(path), string(raw)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update sets every field with json_set, which keeps explicit nulls.
func (s *SQLiteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []any{path, collectionOf(path), string(raw)}
	set := "documents.data"
	if len(keys) > 0 {
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			b, err := json.Marshal(fields[k])
			if err != nil {
				return fmt.Errorf("encode %s.%s: %w", path, k, err)
			}
			pairs = append(pairs, "?, json(?)")
			args = append(args, fieldPath(k), string(b))
		}
		set = "json_set(documents.data, " + strings.Join(pairs, ", ") + ")"
	}

	query := `INSERT INTO documents (path, collection, data, updated_at)
		VALUES (?, ?, json(?), CURRENT_TIMESTAMP)
		ON CONFLICT (path)
		DO UPDATE SET data = ` + set + `, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Remove matches descendants by the byte range [path+"/", path+"0"), as
// '0' follows '/' and TEXT compares bytewise under the BINARY collation.
func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	query := `DELETE FROM documents WHERE path = ? OR (path >= ? AND path < ?)`
	if _, err := s.db.ExecContext(ctx, query, path, path+"/", path+"0"); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, collection, field string, value any, out any) error {
	want, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode query value: %w", err)
	}

	query := `SELECT data FROM documents
		WHERE collection = ? AND json_type(data, ?) IS NOT NULL
		AND json_extract(data, ?) IS json_extract(?, '$')
		ORDER BY path`
	p := fieldPath(field)
	return s.selectAll(ctx, out, query, collection, p, p, string(want))
}

// QueryAtMost inlines collection and field so the filter matches partial
// expression indexes such as documents_trash_expiry_idx.
func (s *SQLiteStore) QueryAtMost(ctx context.Context, collection, field string, max int64, out any) error {
	if err := checkIdentifier(collection); err != nil {
		return err
	}
	if err := checkIdentifier(field); err != nil {
		return err
	}

	query := `SELECT data FROM documents WHERE collection = '` + collection +
		`' AND json_extract(data, '$.` + field + `') <= ? ORDER BY path`
	return s.selectAll(ctx, out, query, max)
}

func (s *SQLiteStore) List(ctx context.Context, collection string, out any) error {
	query := `SELECT data FROM documents WHERE collection = ? ORDER BY path`
	return s.selectAll(ctx, out, query, collection)
}

func (s *SQLiteStore) selectAll(ctx context.Context, out any, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	docs := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw string
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

// fieldPath quotes a top-level field name as a SQLite JSON path.
func fieldPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}
