// Package session owns the authenticated session of the storefront: restore
// from the persisted store, credential exchange, request headers and logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// Fallback messages used when the server does not supply one.
const (
	LoginFailedMessage  = "Login failed"
	SignupFailedMessage = "Signup failed"
)

// Authenticator exchanges credentials with the remote API.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error)
	Signup(ctx context.Context, in domain.SignupInput) (*domain.AuthResponse, error)
}

// Result is the outcome of Login and Signup. Failure is nil on success.
type Result struct {
	Success bool
	Message string
	Failure apperrors.Failure
}

// Listener is notified after every session change. ok is false when the
// session was cleared.
type Listener func(s domain.Session, ok bool)

// Manager holds the current session. All methods are safe for concurrent
// use; AuthHeaders and IsAuthenticated only take the read lock.
type Manager struct {
	auth   Authenticator
	store  repository.SessionStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	session *domain.Session

	ready     chan struct{}
	readyOnce sync.Once

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewManager creates a Manager in the Unknown state. Call Restore to leave it.
func NewManager(auth Authenticator, store repository.SessionStore, log *slog.Logger) *Manager {
	return &Manager{
		auth:      auth,
		store:     store,
		logger:    log,
		now:       time.Now,
		ready:     make(chan struct{}),
		listeners: make(map[int]Listener),
	}
}

// Ready is closed once the first Restore has completed.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Restore loads the persisted session without contacting the API. A partial
// or undecodable record is cleared and the manager stays anonymous. A store
// that cannot be read is left untouched. Restore never fails; store errors
// are logged.
func (m *Manager) Restore(ctx context.Context) {
	defer m.readyOnce.Do(func() { close(m.ready) })

	rec, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrCorrupt):
		m.logger.WarnContext(ctx, "discarding corrupt persisted session",
			slog.String("error", err.Error()),
		)
		m.clearStore(ctx)
		m.install(nil)
		return
	case err != nil:
		// The record may be valid; a later run can still read it.
		m.logger.WarnContext(ctx, "failed to load persisted session",
			slog.String("error", err.Error()),
		)
		m.install(nil)
		return
	}

	if rec.Empty() {
		m.install(nil)
		return
	}

	user, err := decodeUser(rec)
	if err != nil {
		m.logger.WarnContext(ctx, "discarding corrupt persisted session",
			slog.String("error", err.Error()),
		)
		m.clearStore(ctx)
		m.install(nil)
		return
	}

	s := domain.NewSession(rec.Token, user, true)
	m.install(&s)

	if exp, ok := tokenExpiry(rec.Token); ok && !exp.After(m.now()) {
		m.logger.WarnContext(ctx, "restored session token has expired",
			slog.String("user_id", user.ID.String()),
			slog.Time("expired_at", exp),
		)
	}
	m.logger.DebugContext(ctx, "session restored", slog.String("user_id", user.ID.String()))
}

func decodeUser(rec repository.Record) (domain.User, error) {
	if !rec.Complete() {
		return domain.User{}, fmt.Errorf("persisted session is missing %s", missingKey(rec))
	}
	var u domain.User
	if err := json.Unmarshal([]byte(rec.User), &u); err != nil {
		return domain.User{}, fmt.Errorf("decode persisted user: %w", err)
	}
	if u == (domain.User{}) {
		return domain.User{}, fmt.Errorf("persisted user is empty")
	}
	return u, nil
}

func missingKey(rec repository.Record) string {
	if rec.Token == "" {
		return repository.KeyToken
	}
	return repository.KeyUser
}

// Login exchanges credentials for a session. On failure nothing is
// persisted and the current state is left as it was.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) Result {
	return m.exchange(ctx, "login", LoginFailedMessage, creds.Email, func() (*domain.AuthResponse, error) {
		return m.auth.Login(ctx, creds)
	})
}

// Signup registers an account and logs it in.
func (m *Manager) Signup(ctx context.Context, in domain.SignupInput) Result {
	return m.exchange(ctx, "signup", SignupFailedMessage, in.Email, func() (*domain.AuthResponse, error) {
		return m.auth.Signup(ctx, in)
	})
}

func (m *Manager) exchange(ctx context.Context, op, fallback, email string, call func() (*domain.AuthResponse, error)) (res Result) {
	log := logger.WithContext(ctx, m.logger).With(
		slog.String("op", op),
		slog.String("email", logger.MaskEmail(email)),
	)

	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "credential exchange panicked", slog.Any("panic", rec))
			res = failed(&apperrors.GeneralFailure{Message: apperrors.UnexpectedMessage})
		}
	}()

	resp, err := call()
	if err != nil {
		f := apperrors.Classify(err, fallback)
		log.InfoContext(ctx, "credential exchange failed", slog.String("error", err.Error()))
		return failed(f)
	}
	if resp == nil || resp.Token == "" || resp.User == nil {
		log.WarnContext(ctx, "credential exchange returned no session")
		return failed(&apperrors.GeneralFailure{Message: fallback})
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return failed(apperrors.Classify(err, fallback))
	}
	if err := m.store.Save(ctx, repository.Record{Token: resp.Token, User: string(userJSON)}); err != nil {
		log.WarnContext(ctx, "failed to persist session", slog.String("error", err.Error()))
	}

	s := domain.NewSession(resp.Token, *resp.User, false)
	m.install(&s)

	log.InfoContext(ctx, "session established", slog.String("user_id", resp.User.ID.String()))
	return Result{Success: true, Message: resp.Message}
}

func failed(f apperrors.Failure) Result {
	return Result{Success: false, Message: f.Error(), Failure: f}
}

// Logout clears the persisted and in-memory session. It is idempotent. The
// in-memory session is cleared even when the store fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to clear persisted session", slog.String("error", err.Error()))
		err = fmt.Errorf("clear persisted session: %w", err)
	}
	m.install(nil)
	return err
}

// IsAuthenticated reports whether a token and user are present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.Token != ""
}

// RequireAuth returns an *apperrors.AuthRequiredError carrying from when
// there is no session.
func (m *Manager) RequireAuth(from string) error {
	if m.IsAuthenticated() {
		return nil
	}
	return apperrors.AuthRequired(from)
}

// AuthHeaders returns the headers for an API request. Authorization is set
// only when a session exists.
func (m *Manager) AuthHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	m.mu.RLock()
	var token string
	if m.session != nil {
		token = m.session.Token
	}
	m.mu.RUnlock()

	if token == "" {
		m.logger.Warn("auth headers requested without a session")
		return h
	}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// Current returns a copy of the session.
func (m *Manager) Current() (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

// TokenExpiry returns the exp claim of the current token when it is a JWT.
// The token is not verified.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	s, ok := m.Current()
	if !ok {
		return time.Time{}, false
	}
	return tokenExpiry(s.Token)
}

func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// OnChange registers l and returns a function that removes it.
func (m *Manager) OnChange(l Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) install(s *domain.Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.listenersMu.Lock()
	ls := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.listenersMu.Unlock()

	var cur domain.Session
	if s != nil {
		cur = *s
	}
	for _, l := range ls {
		l(cur, s != nil)
	}
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear persisted session", slog.String("error", err.Error()))
	}
}
