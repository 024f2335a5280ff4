package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"resumeforge/internal/errors"
	"resumeforge/internal/observability"
	"resumeforge/internal/types"

	"github.com/google/uuid"
)

// InvalidateFunc is called with the id of a session that was logged out
type InvalidateFunc func(sessionID string)

// Options configures a Manager
type Options struct {
	// Cookies is nil for the CLI, which has no browser.
	Cookies *CookieCodec
	Logger  *errors.Logger
	Metrics *observability.Metrics
}

// Manager creates, loads and ends sessions on top of a Store.
type Manager struct {
	store   Store
	cookies *CookieCodec
	logger  *errors.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu        sync.RWMutex
	listeners []InvalidateFunc
}

func NewManager(store Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger, _ = errors.New("error")
	}
	return &Manager{
		store:   store,
		cookies: opts.Cookies,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// OnInvalidate registers fn to run after every logout
func (m *Manager) OnInvalidate(fn InvalidateFunc) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Create stores a new session for a successful login or signup
func (m *Manager) Create(ctx context.Context, auth *types.AuthResponse) (*Session, error) {
	if auth == nil || auth.Token == "" {
		return nil, errors.NewValidationError(errors.ErrCodeUnauthenticated, "no token to start a session with", nil)
	}

	s := &Session{
		ID:        uuid.NewString(),
		Token:     auth.Token,
		User:      auth.User,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Save(ctx, s); err != nil {
		m.logger.LogError(err, "Failed to save session")
		return nil, err
	}

	m.metrics.RecordSessionEvent(ctx, "login")
	m.logger.Info("Session started", "session_id", s.ID, "email", s.User.Email)
	return s, nil
}

// Begin creates a session and sets its cookie on w
func (m *Manager) Begin(ctx context.Context, w http.ResponseWriter, auth *types.AuthResponse) (*Session, error) {
	s, err := m.Create(ctx, auth)
	if err != nil {
		return nil, err
	}
	if m.cookies != nil {
		if err := m.cookies.Write(w, s.ID); err != nil {
			_ = m.store.Delete(ctx, s.ID)
			return nil, err
		}
	}
	return s, nil
}

// Get loads a session by id; nil means none
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	return m.store.Load(ctx, id)
}

// Current returns the CLI's stored session, or nil when not logged in
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	return m.store.Load(ctx, "")
}

// FromRequest resolves the session referenced by the request cookie.
// A missing, tampered or expired cookie yields nil without error.
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	if m.cookies == nil {
		return nil, nil
	}
	id, ok := m.cookies.Read(r)
	if !ok {
		return nil, nil
	}
	s, err := m.store.Load(r.Context(), id)
	if err != nil {
		m.logger.LogError(err, "Failed to load session", "session_id", id)
		return nil, err
	}
	return s, nil
}

// Save persists changes such as the active profile
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s); err != nil {
		m.logger.LogError(err, "Failed to save session", "session_id", s.ID)
		return err
	}
	return nil
}

// Logout deletes the session, clears the cookie when w is non-nil and notifies listeners.
// Listeners run even if the store delete fails, so per-session state is always dropped.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	err := m.store.Delete(ctx, sessionID)
	if err != nil {
		m.logger.LogError(err, "Failed to delete session", "session_id", sessionID)
	}
	if w != nil && m.cookies != nil {
		m.cookies.Clear(w)
	}

	m.mu.RLock()
	listeners := append([]InvalidateFunc(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(sessionID)
	}

	m.metrics.RecordSessionEvent(ctx, "logout")
	m.logger.Info("Session ended", "session_id", sessionID)
	return err
}
