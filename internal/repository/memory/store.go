package memory

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
)

// SessionStore implements repository.SessionStore in process memory. It is
// used for ephemeral sessions and in tests.
type SessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewSessionStore creates an in-memory store whose keys never expire.
func NewSessionStore() *SessionStore {
	return &SessionStore{cache: cache.New(cache.NoExpiration, 0)}
}

// Load returns the stored keys.
func (s *SessionStore) Load(_ context.Context) (repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec repository.Record
	if v, ok := s.cache.Get(repository.KeyToken); ok {
		rec.Token, _ = v.(string)
	}
	if v, ok := s.cache.Get(repository.KeyUser); ok {
		rec.User, _ = v.(string)
	}
	return rec, nil
}

// Save stores both keys.
func (s *SessionStore) Save(_ context.Context, rec repository.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(repository.KeyToken, rec.Token, cache.NoExpiration)
	s.cache.Set(repository.KeyUser, rec.User, cache.NoExpiration)
	return nil
}

// Clear removes both keys.
func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Delete(repository.KeyToken)
	s.cache.Delete(repository.KeyUser)
	return nil
}

// Set writes a single raw key. Tests use it to seed partial or corrupt state.
func (s *SessionStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, value, cache.NoExpiration)
}

// Has reports whether key is present.
func (s *SessionStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache.Get(key)
	return ok
}
