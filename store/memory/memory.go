// Package memory provides an in-memory engine.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/model-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu     sync.RWMutex
	models map[string]*engine.FinancialModel
	order  []string // insertion order
}

func New() *Store {
	return &Store{models: make(map[string]*engine.FinancialModel)}
}

// SaveModel stores m. Models are immutable, so the pointer is kept as is.
func (s *Store) SaveModel(_ context.Context, m *engine.FinancialModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[m.ID]; ok {
		return engine.ErrDuplicateModel
	}
	s.models[m.ID] = m
	s.order = append(s.order, m.ID)
	return nil
}

func (s *Store) GetModel(_ context.Context, id string) (*engine.FinancialModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, engine.ErrModelNotFound
	}
	return m, nil
}

// ListModels returns summaries newest first. limit <= 0 means all.
func (s *Store) ListModels(_ context.Context, limit int) ([]engine.ModelSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.newestFirst()
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]engine.ModelSummary, len(ids))
	for i, id := range ids {
		out[i] = engine.Summarize(s.models[id])
	}
	return out, nil
}

func (s *Store) FindByFingerprint(_ context.Context, fingerprint string) (*engine.FinancialModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.newestFirst() {
		if m := s.models[id]; m.InputsFingerprint == fingerprint {
			return m, nil
		}
	}
	return nil, engine.ErrModelNotFound
}

// newestFirst orders ids by GeneratedAt descending, later inserts first on ties.
// Caller must hold the lock.
func (s *Store) newestFirst() []string {
	ids := make([]string, len(s.order))
	for i, id := range s.order {
		ids[len(ids)-1-i] = id
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return s.models[ids[i]].GeneratedAt.After(s.models[ids[j]].GeneratedAt)
	})
	return ids
}
