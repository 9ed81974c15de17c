package intervention

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Repository with an in-process map.
// Intended for demos and testing; nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Intervention
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]Intervention)}
}

func (s *MemoryStore) Create(_ context.Context, iv Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[iv.ID]; ok {
		return fmt.Errorf("intervention %s already exists", iv.ID)
	}
	s.items[iv.ID] = clone(iv)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.items[id]
	if !ok {
		return Intervention{}, ErrNotFound
	}
	return clone(iv), nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Intervention, 0)
	for _, iv := range s.items {
		if f.Match(iv) {
			out = append(out, clone(iv))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, iv Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[iv.ID]; !ok {
		return ErrNotFound
	}
	s.items[iv.ID] = clone(iv)
	return nil
}

// clone copies the timestamp pointers so callers cannot mutate stored state.
func clone(iv Intervention) Intervention {
	if iv.ExecutedAt != nil {
		t := *iv.ExecutedAt
		iv.ExecutedAt = &t
	}
	if iv.CompletedAt != nil {
		t := *iv.CompletedAt
		iv.CompletedAt = &t
	}
	return iv
}
