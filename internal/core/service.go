package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore persists one FileCache per session.
// Get returns ErrSessionNotFound for unknown ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (FileCache, error)
	Save(ctx context.Context, id string, cache FileCache) error
	Delete(ctx context.Context, id string) error
}

// Service is the main entry point for transport layers. It ties the loader
// to session storage and bounds concurrent load requests.
type Service struct {
	loader  *Loader
	store   SessionStore
	limiter *LoadLimiter
	timeout time.Duration

	// Per-session locks serialize read-modify-write of a session's cache.
	locks sync.Map // map[string]*sync.Mutex
}

// NewService creates a Service. A zero timeout disables the per-request
// load deadline.
func NewService(loader *Loader, store SessionStore, limiter *LoadLimiter, timeout time.Duration) *Service {
	if limiter == nil {
		limiter = NewLoadLimiter(0, 0)
	}
	return &Service{
		loader:  loader,
		store:   store,
		limiter: limiter,
		timeout: timeout,
	}
}

// CreateSession starts a session with an empty cache and returns its id.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.store.Save(ctx, id, FileCache{}); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// LoadFiles loads files into a session's cache. Per-file failures are
// reported in the results; the returned error covers the session itself.
func (s *Service) LoadFiles(ctx context.Context, sessionID string, files []FileHandle) ([]LoadResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	unlock := s.lock(sessionID)
	defer unlock()

	cache, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.forget(sessionID, err)
		return nil, err
	}

	next, results := s.loader.ReadFiles(ctx, files, cache)
	if len(next) == len(cache) {
		return results, nil
	}
	if err := s.store.Save(ctx, sessionID, next); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return results, nil
}

// Files returns a session's cache.
func (s *Service) Files(ctx context.Context, sessionID string) (FileCache, error) {
	return s.store.Get(ctx, sessionID)
}

// Payload composes the visualization payload for a session.
func (s *Service) Payload(ctx context.Context, sessionID string) ([]DataPayloadItem, error) {
	cache, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return FilesToDataPayload(cache), nil
}

// DeleteSession drops a session and its cache.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.forget(sessionID, err)
		return err
	}
	s.locks.Delete(sessionID)
	return nil
}

// LimiterStatus returns the load limiter state.
func (s *Service) LimiterStatus() LoadLimiterStatus {
	return s.limiter.Status()
}

// WaitForLoads blocks until in-flight loads finish or ctx is done.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// forget drops the lock entry of an id the store does not know, so bogus
// ids do not accumulate locks.
func (s *Service) forget(sessionID string, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		s.locks.Delete(sessionID)
	}
}

func (s *Service) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
