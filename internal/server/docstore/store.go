// Package docstore is the key-path document store the repositories sit on.
//
// Documents live under "<collection>/<id>" paths. Three backends exist: an
// in-memory one that answers queries by scanning the collection, a
// PostgreSQL one that stores JSONB and answers queries from an index, and an
// embedded SQLite one for single-node setups. Callers do not know which
// strategy serves them.
package docstore

import (
	"context"
	"fmt"
	"strings"
)

// Store is the document store contract.
//
// Get decodes the document at path into out and reports whether it exists.
// Set replaces the document. Update merges top-level fields into it, creating
// the document if needed. Remove deletes the document and everything below it.
// Query decodes all documents of collection whose field equals value into out,
// which must point to a slice. QueryAtMost does the same for documents whose
// numeric field is at most max; both collection and field must be plain
// lowercase identifiers. List does the same without a filter.
type Store interface {
	Get(ctx context.Context, path string, out any) (bool, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	Query(ctx context.Context, collection, field string, value any, out any) error
	QueryAtMost(ctx context.Context, collection, field string, max int64, out any) error
	List(ctx context.Context, collection string, out any) error
}

// Join builds a document path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// checkIdentifier rejects names that cannot be inlined into SQL, where the
// range query must repeat the exact expression of its index.
func checkIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("invalid identifier %q", name)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}

// collectionOf returns the parent path of p.
func collectionOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}
