package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
)

const keyPrefix = "storefront:"

// SessionStore implements repository.SessionStore using Redis. Both keys
// live under storefront:<namespace>: and are written in one transaction.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore creates a Redis-backed session store. A zero ttl keeps
// the keys until they are cleared.
func NewSessionStore(client *redis.Client, namespace string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: keyPrefix + namespace + ":",
		ttl:    ttl,
	}
}

func (s *SessionStore) key(name string) string { return s.prefix + name }

// Load retrieves both keys.
func (s *SessionStore) Load(ctx context.Context) (repository.Record, error) {
	vals, err := s.client.MGet(ctx, s.key(repository.KeyToken), s.key(repository.KeyUser)).Result()
	if err != nil {
		return repository.Record{}, fmt.Errorf("redis mget session: %w", err)
	}

	var rec repository.Record
	if v, ok := vals[0].(string); ok {
		rec.Token = v
	}
	if v, ok := vals[1].(string); ok {
		rec.User = v
	}
	return rec, nil
}

// Save persists both keys atomically.
func (s *SessionStore) Save(ctx context.Context, rec repository.Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(repository.KeyToken), rec.Token, s.ttl)
		pipe.Set(ctx, s.key(repository.KeyUser), rec.User, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Clear removes both keys.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(repository.KeyToken), s.key(repository.KeyUser)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
