package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/redis/go-redis/v9"
)

// minGrantTTL keeps consumed grants around even when the window is nearly over
const minGrantTTL = time.Second

// RedisStore is a Redis implementation of the session and grant stores
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "starnotary:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) sessionKey(address string) string {
	return s.prefix + "session:" + address
}

func (s *RedisStore) grantKey(grantID string) string {
	return s.prefix + "grant:" + grantID
}

// Load reads the address's session
func (s *RedisStore) Load(ctx context.Context, address string) (*core.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Save writes the session with expiration
func (s *RedisStore) Save(ctx context.Context, session *core.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.sessionKey(session.Address), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the address's session
func (s *RedisStore) Delete(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, s.sessionKey(address)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ConsumeGrant marks a grant as used with SETNX, so only one caller across instances wins
func (s *RedisStore) ConsumeGrant(ctx context.Context, grantID string, ttl time.Duration) (bool, error) {
	if ttl < minGrantTTL {
		ttl = minGrantTTL
	}
	ok, err := s.client.SetNX(ctx, s.grantKey(grantID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume grant: %w", err)
	}
	return ok, nil
}
