package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.Now
	return s, clock
}

func TestMemoryStore_CreateGet(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	sess, err := s.Create(ctx, 42, "a@x.com", 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "a@x.com", got.UserEmail)
	assert.False(t, got.Anonymous())
}

func TestMemoryStore_UniqueIDs(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	a, _ := s.Create(ctx, 1, "a@x.com", time.Hour)
	b, _ := s.Create(ctx, 1, "a@x.com", time.Hour)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	sess, _ := s.Create(ctx, 1, "a@x.com", time.Hour)
	got, _ := s.Get(ctx, sess.ID)
	got.UserID = 99

	again, _ := s.Get(ctx, sess.ID)
	assert.Equal(t, int64(1), again.UserID)
}

func TestMemoryStore_ExpiredIsNotFound(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	sess, _ := s.Create(ctx, 1, "a@x.com", time.Hour)
	clock.Advance(time.Hour)

	_, err := s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
	assert.ErrorIs(t, s.Touch(ctx, sess.ID, time.Hour), port.ErrSessionNotFound)
}

func TestMemoryStore_TouchSlidesExpiry(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	sess, _ := s.Create(ctx, 1, "a@x.com", time.Hour)
	clock.Advance(50 * time.Minute)
	require.NoError(t, s.Touch(ctx, sess.ID, time.Hour))
	clock.Advance(50 * time.Minute)

	_, err := s.Get(ctx, sess.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_Destroy(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	sess, _ := s.Create(ctx, 1, "a@x.com", time.Hour)
	require.NoError(t, s.Destroy(ctx, sess.ID))
	require.NoError(t, s.Destroy(ctx, "unknown"))

	_, err := s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
}

func TestMemoryStore_Sweep(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	s.Create(ctx, 1, "short@x.com", time.Hour)
	long, _ := s.Create(ctx, 2, "long@x.com", 48*time.Hour)
	clock.Advance(25 * time.Hour)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(ctx, long.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_RunSweeperStopsOnCancel(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.Create(ctx, int64(i+1), "c@x.com", time.Hour)
			if err != nil {
				return
			}
			s.Get(ctx, sess.ID)
			s.Touch(ctx, sess.ID, time.Hour)
			s.Sweep()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
