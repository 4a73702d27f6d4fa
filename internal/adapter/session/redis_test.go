package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_CreateGet(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, 7, "a@x.com", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, mr.Exists("sess:"+sess.ID))
	assert.Equal(t, 24*time.Hour, mr.TTL("sess:"+sess.ID))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "a@x.com", got.UserEmail)
}

func TestRedisStore_Expiry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	sess, _ := s.Create(ctx, 7, "a@x.com", time.Hour)
	mr.FastForward(time.Hour + time.Second)

	_, err := s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
}

func TestRedisStore_TouchResetsTTL(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	sess, _ := s.Create(ctx, 7, "a@x.com", time.Hour)
	mr.FastForward(30 * time.Minute)

	require.NoError(t, s.Touch(ctx, sess.ID, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("sess:"+sess.ID))
}

func TestRedisStore_TouchMissing(t *testing.T) {
	s, _ := newTestRedisStore(t)

	assert.ErrorIs(t, s.Touch(context.Background(), "nope", time.Hour), port.ErrSessionNotFound)
}

func TestRedisStore_Destroy(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	sess, _ := s.Create(ctx, 7, "a@x.com", time.Hour)
	require.NoError(t, s.Destroy(ctx, sess.ID))

	assert.False(t, mr.Exists("sess:"+sess.ID))
	_, err := s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
}

func TestRedisStore_BackendDown(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()

	_, err := s.Get(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrSessionNotFound)
	assert.ErrorIs(t, err, port.ErrStorageUnavailable)
}
