package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps documents as JSON in a map. Query and List scan the
// whole collection.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(ctx context.Context, path string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.docs[path]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = raw
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := map[string]json.RawMessage{}
	if raw, ok := s.docs[path]; ok {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}

	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", path, k, err)
		}
		doc[k] = b
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	s.docs[path] = raw
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := path + "/"
	for p := range s.docs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(s.docs, p)
		}
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection, field string, value any, out any) error {
	want, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode query value: %w", err)
	}
	var wantValue any
	if err := json.Unmarshal(want, &wantValue); err != nil {
		return fmt.Errorf("decode query value: %w", err)
	}

	return s.scan(collection, out, func(doc map[string]any) bool {
		got, ok := doc[field]
		return ok && reflect.DeepEqual(got, wantValue)
	})
}

func (s *MemoryStore) QueryAtMost(ctx context.Context, collection, field string, max int64, out any) error {
	if err := checkIdentifier(field); err != nil {
		return err
	}
	return s.scan(collection, out, func(doc map[string]any) bool {
		n, ok := doc[field].(float64)
		return ok && n <= float64(max)
	})
}

func (s *MemoryStore) List(ctx context.Context, collection string, out any) error {
	return s.scan(collection, out, func(map[string]any) bool { return true })
}

// scan collects the direct children of collection accepted by match, in path
// order, and decodes them into out.
func (s *MemoryStore) scan(collection string, out any, match func(map[string]any) bool) error {
	s.mu.RLock()
	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		if collectionOf(p) == collection {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	matched := make([]json.RawMessage, 0, len(paths))
	for _, p := range paths {
		var doc map[string]any
		if err := json.Unmarshal(s.docs[p], &doc); err != nil {
			continue
		}
		if match(doc) {
			matched = append(matched, s.docs[p])
		}
	}
	s.mu.RUnlock()

	return decodeAll(matched, out)
}

func decodeAll(docs []json.RawMessage, out any) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}
	return nil
}
