// Package memory is a process-local model store used when no database is
// configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chrissnell/stellaratm/internal/storage"
	"github.com/chrissnell/stellaratm/internal/types"
)

// Store implements storage.ModelStore in memory
type Store struct {
	mu     sync.RWMutex
	models map[string]types.Atmosphere
}

// New returns an empty store
func New() *Store {
	return &Store{models: make(map[string]types.Atmosphere)}
}

// Save implements storage.ModelStore
func (s *Store) Save(_ context.Context, m *types.Atmosphere) error {
	c := *m
	c.Levels = append([]types.Level(nil), m.Levels...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ID] = c
	return nil
}

// Get implements storage.ModelStore
func (s *Store) Get(_ context.Context, id string) (*types.Atmosphere, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	m.Levels = append([]types.Level(nil), m.Levels...)
	return &m, nil
}

// List implements storage.ModelStore
func (s *Store) List(_ context.Context) ([]types.Atmosphere, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]types.Atmosphere, 0, len(s.models))
	for _, m := range s.models {
		m.Levels = nil
		runs = append(runs, m)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Created.After(runs[j].Created)
	})
	return runs, nil
}

// Ping implements storage.ModelStore
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close implements storage.ModelStore
func (s *Store) Close() error {
	return nil
}
