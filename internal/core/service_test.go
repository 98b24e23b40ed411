package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStore is a minimal SessionStore for service tests.
type mapStore struct {
	mu       sync.Mutex
	sessions map[string]FileCache
	saves    int
	saveErr  error
}

func newMapStore() *mapStore { return &mapStore{sessions: make(map[string]FileCache)} }

func (s *mapStore) Get(_ context.Context, id string) (FileCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (s *mapStore) Save(_ context.Context, id string, cache FileCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.sessions[id] = cache
	return nil
}

func (s *mapStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func newTestService(t *testing.T, st SessionStore) *Service {
	t.Helper()
	p := nameParser{byName: map[string]any{
		"a.csv":  []any{[]any{"a"}, []any{"1"}},
		"b.json": []any{map[string]any{"b": 2.0}},
		"c.bin":  nil,
	}}
	l := newTestLoader(t, p, LoaderOptions{})
	return NewService(l, st, NewLoadLimiter(1, 50*time.Millisecond), time.Second)
}

func TestService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()
	svc := newTestService(t, st)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	results, err := svc.LoadFiles(ctx, id, []FileHandle{memFile("a.csv", "a"), memFile("c.bin", "x")})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Loaded())
	assert.NotEmpty(t, results[1].Warning)

	_, err = svc.LoadFiles(ctx, id, []FileHandle{memFile("b.json", "[]")})
	require.NoError(t, err)

	files, err := svc.Files(ctx, id)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.csv", files[0].Info.Label)
	assert.Equal(t, "b.json", files[1].Info.Label)

	payload, err := svc.Payload(ctx, id)
	require.NoError(t, err)
	require.Len(t, payload, 1)
	assert.Len(t, payload[0].Datasets, 2)

	require.NoError(t, svc.DeleteSession(ctx, id))
	_, err = svc.Files(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_NoSaveWhenNothingLoaded(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()
	svc := newTestService(t, st)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	saves := st.saves

	_, err = svc.LoadFiles(ctx, id, []FileHandle{memFile("c.bin", "x")})
	require.NoError(t, err)
	assert.Equal(t, saves, st.saves)
}

func TestService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMapStore())

	_, err := svc.LoadFiles(ctx, "nope", []FileHandle{memFile("a.csv", "a")})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Payload(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.DeleteSession(ctx, "nope"), ErrSessionNotFound)
}

func TestService_UnknownSessionLeavesNoLock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMapStore())

	for i := 0; i < 3; i++ {
		id := GenerateHashID(8)
		_, err := svc.LoadFiles(ctx, id, []FileHandle{memFile("a.csv", "a")})
		require.ErrorIs(t, err, ErrSessionNotFound)
		require.ErrorIs(t, svc.DeleteSession(ctx, id), ErrSessionNotFound)
	}

	locks := 0
	svc.locks.Range(func(any, any) bool {
		locks++
		return true
	})
	assert.Zero(t, locks)
}

func TestService_SaveError(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()
	svc := newTestService(t, st)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	st.saveErr = errors.New("connection refused")
	_, err = svc.LoadFiles(ctx, id, []FileHandle{memFile("a.csv", "a")})
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, "SES002", MapError(err).Code)
}

func TestService_LimiterRejectsWhenBusy(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMapStore())
	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	require.True(t, svc.limiter.TryAcquire())
	_, err = svc.LoadFiles(ctx, id, []FileHandle{memFile("a.csv", "a")})
	assert.ErrorIs(t, err, ErrTooManyLoads)
	assert.Equal(t, 1, svc.LimiterStatus().Active)

	svc.limiter.Release()
	require.NoError(t, svc.WaitForLoads(ctx))
}

func TestService_ConcurrentLoadsKeepEveryFile(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()

	p := nameParser{byName: map[string]any{"a.csv": []any{[]any{"a"}}}}
	l := newTestLoader(t, p, LoaderOptions{})
	svc := NewService(l, st, NewLoadLimiter(8, time.Second), 0)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.LoadFiles(ctx, id, []FileHandle{memFile("a.csv", "a")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	files, err := svc.Files(ctx, id)
	require.NoError(t, err)
	assert.Len(t, files, 8)
}
