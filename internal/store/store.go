// Package store implements core.SessionStore.
//
// MemoryStore keeps caches in process and is used by the CLI and tests.
// PostgresStore persists each session's cache as one JSONB document.
package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/mapload/internal/core"
)

// MemoryStore is an in-process session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]core.FileCache
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]core.FileCache)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (core.FileCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cache, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return cache, nil
}

// Save stores a copy of cache so later appends by the caller never alias it.
func (s *MemoryStore) Save(_ context.Context, id string, cache core.FileCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = core.FileCache{}.Append(cache...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return core.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
