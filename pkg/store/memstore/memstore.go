// Package memstore provides an in-memory implementation of store.Store.
// Suitable for single-node deployments and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jagalabs/scamguard/pkg/store"
)

// Store holds alerts in memory.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*store.Alert
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{alerts: make(map[string]*store.Alert)}
}

// Create stores a copy of the alert.
func (s *Store) Create(_ context.Context, a *store.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

// Get retrieves an alert by id. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*store.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Delete removes an alert by id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

// CountSince returns how many alerts were created at or after ts.
func (s *Store) CountSince(_ context.Context, ts time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if !a.CreatedAt.Before(ts) {
			n++
		}
	}
	return n, nil
}

// CategoryCounts aggregates alert categories created at or after ts.
func (s *Store) CategoryCounts(_ context.Context, ts time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, a := range s.alerts {
		if !a.CreatedAt.Before(ts) {
			counts[a.Category]++
		}
	}
	return counts, nil
}

// TacticCounts aggregates matched tactics across alerts created at or after ts.
func (s *Store) TacticCounts(_ context.Context, ts time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, a := range s.alerts {
		if a.CreatedAt.Before(ts) {
			continue
		}
		for _, t := range a.Tactics {
			counts[string(t)]++
		}
	}
	return counts, nil
}
