package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
)

// SessionStore implements repository.SessionStore as a JSON document on the
// local filesystem. Writes replace the file atomically.
type SessionStore struct {
	path string
	mu   sync.Mutex
}

// NewSessionStore creates a file-backed store at path. The parent directory
// is created on first write.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the file location.
func (s *SessionStore) Path() string { return s.path }

// Load reads the document. A missing file is an empty record.
func (s *SessionStore) Load(_ context.Context) (repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return repository.Record{}, nil
		}
		return repository.Record{}, fmt.Errorf("read session file: %w", err)
	}

	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return repository.Record{}, fmt.Errorf("unmarshal session file: %w", errors.Join(repository.ErrCorrupt, err))
	}

	return repository.Record{
		Token: doc[repository.KeyToken],
		User:  doc[repository.KeyUser],
	}, nil
}

// Save writes both keys.
func (s *SessionStore) Save(_ context.Context, rec repository.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(map[string]string{
		repository.KeyToken: rec.Token,
		repository.KeyUser:  rec.User,
	})
	if err != nil {
		return fmt.Errorf("marshal session file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the document.
func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
