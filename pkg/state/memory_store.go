package state

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/goliatone/go-videoconfig/layering"
)

// MemoryStore is a minimal in-memory Store intended for tests and examples.
// It uses Ref.Identifier() as its key and deep-copies values in both
// directions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	values map[string]any
	meta   Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return layering.CopyValues(record.values), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, values map[string]any, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkETag(meta, s.records[key].meta); err != nil {
		return Meta{}, err
	}
	stored := stamp(meta)
	s.records[key] = memoryRecord{values: layering.CopyValues(values), meta: stored}
	return cloneMeta(stored), nil
}

// Sources lists the identifiers of every stored layer.
func (s *MemoryStore) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.records))
}
