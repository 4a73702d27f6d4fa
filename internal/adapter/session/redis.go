package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sess:"

// RedisStore keeps sessions in Redis so they survive process restarts.
// Expiry is delegated to key TTLs, so no sweeper is needed.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Create stores a new session with a TTL of ttl.
func (s *RedisStore) Create(ctx context.Context, userID int64, email string, ttl time.Duration) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserEmail: email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(sess.ID), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w: %w", port.ErrStorageUnavailable, err)
	}
	return sess, nil
}

// Get loads a session; missing or expired keys yield port.ErrSessionNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w: %w", port.ErrStorageUnavailable, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Touch slides the session expiry to now+ttl.
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.ExpiresAt = time.Now().Add(ttl)
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	// XX: never resurrect a key destroyed concurrently
	ok, err := s.client.SetXX(ctx, redisKey(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("touch session: %w: %w", port.ErrStorageUnavailable, err)
	}
	if !ok {
		return port.ErrSessionNotFound
	}
	return nil
}

// Destroy deletes a session.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w: %w", port.ErrStorageUnavailable, err)
	}
	return nil
}
