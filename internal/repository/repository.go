package repository

import (
	"context"
	"errors"
)

// ErrCorrupt is returned by Load when the stored data exists but cannot be
// decoded. Callers may clear the store; other Load errors leave it alone.
var ErrCorrupt = errors.New("persisted session is corrupt")

// Persisted keys. Both are always written and cleared together.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Record is the persisted session state. User holds the serialized user
// record exactly as it was stored; decoding is left to the session layer so
// that corrupt data can be detected and cleared there.
type Record struct {
	Token string
	User  string
}

// Empty reports whether neither key is present.
func (r Record) Empty() bool { return r.Token == "" && r.User == "" }

// Complete reports whether both keys are present.
func (r Record) Complete() bool { return r.Token != "" && r.User != "" }

// SessionStore defines persistence for the local session.
type SessionStore interface {
	// Load returns the persisted record. Missing keys yield empty fields,
	// not an error.
	Load(ctx context.Context) (Record, error)

	// Save writes both keys, replacing any previous values.
	Save(ctx context.Context, rec Record) error

	// Clear removes both keys. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
