package screening

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndWith(t *testing.T) {
	st := NewStore()
	a := st.Create()
	b := st.Create()
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, st.Len())

	require.NoError(t, st.With(a, func(s *Session) error {
		return s.RecordAnswer("glucose", 120)
	}))

	// sessions are isolated from each other
	require.NoError(t, st.With(b, func(s *Session) error {
		assert.Equal(t, 0, s.Len())
		return nil
	}))
	require.NoError(t, st.With(a, func(s *Session) error {
		assert.True(t, s.Answered("glucose"))
		return nil
	}))
}

func TestStore_UnknownSession(t *testing.T) {
	st := NewStore()
	err := st.With(uuid.New(), func(s *Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id := st.Create()
	assert.True(t, st.Delete(id))
	assert.False(t, st.Delete(id))
	assert.ErrorIs(t, st.With(id, func(s *Session) error { return nil }), ErrSessionNotFound)
}

func TestStore_Sweep(t *testing.T) {
	st := NewStore()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	stale := st.Create()
	clock = clock.Add(20 * time.Minute)
	fresh := st.Create()
	clock = clock.Add(15 * time.Minute)

	removed := st.Sweep(30 * time.Minute)
	assert.Equal(t, 1, removed)
	assert.ErrorIs(t, st.With(stale, func(s *Session) error { return nil }), ErrSessionNotFound)
	assert.NoError(t, st.With(fresh, func(s *Session) error { return nil }))
}

func TestStore_ConcurrentSessions(t *testing.T) {
	st := NewStore()
	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = st.Create()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for _, f := range Fields() {
			wg.Add(1)
			go func(id uuid.UUID, f FieldDefinition) {
				defer wg.Done()
				err := st.With(id, func(s *Session) error {
					return s.RecordAnswer(f.ID, f.Max)
				})
				assert.NoError(t, err)
			}(id, f)
		}
	}
	wg.Wait()

	for _, id := range ids {
		require.NoError(t, st.With(id, func(s *Session) error {
			assert.True(t, s.IsComplete())
			return nil
		}))
	}
}

func TestStore_SweepDoesNotBlockOtherSessions(t *testing.T) {
	st := NewStore()
	busy := st.Create()
	other := st.Create()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = st.With(busy, func(s *Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	swept := make(chan int, 1)
	go func() { swept <- st.Sweep(time.Hour) }()

	select {
	case n := <-swept:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("sweep waited on a session that is in use")
	}

	done := make(chan error, 1)
	go func() {
		done <- st.With(other, func(s *Session) error { return s.RecordAnswer("age", 30) })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("unrelated session waited behind a busy one")
	}

	created := make(chan uuid.UUID, 1)
	go func() { created <- st.Create() }()
	select {
	case <-created:
	case <-time.After(time.Second):
		t.Fatal("create waited behind a busy session")
	}
}

func TestStore_SweepKeepsBusySession(t *testing.T) {
	st := NewStore()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	st.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	id := st.Create()
	advance(20 * time.Minute)

	entered := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		finished <- st.With(id, func(s *Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	advance(15 * time.Minute)
	assert.Equal(t, 0, st.Sweep(30*time.Minute))

	close(release)
	require.NoError(t, <-finished)
	assert.Equal(t, 1, st.Len())
}

func TestStore_WithAfterDeleteWhileWaiting(t *testing.T) {
	st := NewStore()
	id := st.Create()

	entered := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- st.With(id, func(s *Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	called := false
	second := make(chan error, 1)
	go func() {
		second <- st.With(id, func(s *Session) error {
			called = true
			return nil
		})
	}()

	// give the second caller a chance to queue on the entry lock
	time.Sleep(20 * time.Millisecond)
	st.Delete(id)
	close(release)

	require.NoError(t, <-first)
	assert.ErrorIs(t, <-second, ErrSessionNotFound)
	assert.False(t, called)
}
