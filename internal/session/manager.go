// Package session tracks token expiry and inactivity on top of the
// credential store. The checks are a client-side fast-fail only; the remote
// 401 stays the source of truth for authorization.
package session

import (
	"context"
	"strconv"
	"time"

	"github.com/amehdaoui/dukkan/internal/credstore"
	"go.uber.org/zap"
)

// Reasons reported by ValidateSession.
const (
	ReasonTokenExpired    = "token expired"
	ReasonSessionInactive = "session inactive"
)

// Validation is the outcome of a session check.
type Validation struct {
	Valid  bool
	Reason string // empty when Valid
}

// Info summarizes the current session for display.
type Info struct {
	Authenticated  bool
	UserID         string
	TokenExpiresAt time.Time // zero when no token timestamp recorded
	SessionStart   time.Time // zero when never started
	Expired        bool
}

// Manager owns the session lifecycle: NoSession -> ActiveSession ->
// expired/logged-out, with fresh login as the only way back in.
type Manager struct {
	store  credstore.Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New creates a manager with the given token TTL.
func New(store credstore.Store, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, ttl: ttl, now: time.Now, logger: logger}
}

// SetClock overrides the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

func (m *Manager) getMillis(ctx context.Context, key string) (int64, bool) {
	v, err := m.store.Get(ctx, key)
	if err != nil || v == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

func (m *Manager) setMillis(ctx context.Context, key string, t time.Time) error {
	return m.store.Set(ctx, key, strconv.FormatInt(t.UnixMilli(), 10))
}

// InitializeSession persists the credential record and stamps all session
// metadata to the current time. Token and user id are set together; a
// failure on either leaves the session unusable rather than half-armed.
func (m *Manager) InitializeSession(ctx context.Context, token, userID string) error {
	if err := m.store.Set(ctx, credstore.KeyUserToken, token); err != nil {
		return err
	}
	if err := m.store.Set(ctx, credstore.KeyUserID, userID); err != nil {
		// roll back the token so the pair stays consistent
		_ = m.store.Delete(ctx, credstore.KeyUserToken)
		return err
	}
	now := m.now()
	if err := m.setMillis(ctx, credstore.KeyTokenTimestamp, now); err != nil {
		return err
	}
	if err := m.setMillis(ctx, credstore.KeySessionStart, now); err != nil {
		return err
	}
	return m.setMillis(ctx, credstore.KeyLastActivity, now)
}

// AlignTokenExpiry shifts the token timestamp so the client-side TTL window
// ends at the server-issued expiry when that comes sooner. Keeps the local
// fast-fail from outliving the token itself.
func (m *Manager) AlignTokenExpiry(ctx context.Context, exp time.Time) error {
	if exp.IsZero() {
		return nil
	}
	localExpiry := m.now().Add(m.ttl)
	if exp.After(localExpiry) {
		return nil
	}
	return m.setMillis(ctx, credstore.KeyTokenTimestamp, exp.Add(-m.ttl))
}

// IsTokenExpired reports whether the recorded token timestamp is past its
// TTL. A missing timestamp counts as expired.
func (m *Manager) IsTokenExpired(ctx context.Context) bool {
	ms, ok := m.getMillis(ctx, credstore.KeyTokenTimestamp)
	if !ok {
		return true
	}
	expiry := time.UnixMilli(ms).Add(m.ttl)
	return m.now().After(expiry)
}

// IsSessionInactive reports whether more than timeout has passed since the
// last recorded activity. An unobserved session is never treated as already
// inactive: the first call initializes the activity stamp and returns false.
func (m *Manager) IsSessionInactive(ctx context.Context, timeout time.Duration) bool {
	ms, ok := m.getMillis(ctx, credstore.KeyLastActivity)
	if !ok {
		m.RecordLastActivity(ctx)
		return false
	}
	return m.now().Sub(time.UnixMilli(ms)) > timeout
}

// RecordLastActivity stamps the activity time. Idempotent; called on every
// validated request. Failures are logged and ignored so a slow disk never
// blocks a request.
func (m *Manager) RecordLastActivity(ctx context.Context) {
	if err := m.setMillis(ctx, credstore.KeyLastActivity, m.now()); err != nil {
		m.logger.Warn("record last activity", zap.Error(err))
	}
}

// ValidateSession checks TTL first, then inactivity. On either failure it
// ends the session and reports the reason; emitting the logout event is the
// HTTP layer's job, not this one's. On success it refreshes the activity
// stamp.
func (m *Manager) ValidateSession(ctx context.Context, inactivityTimeout time.Duration) Validation {
	if m.IsTokenExpired(ctx) {
		if err := m.EndSession(ctx); err != nil {
			m.logger.Warn("end session after token expiry", zap.Error(err))
		}
		return Validation{Valid: false, Reason: ReasonTokenExpired}
	}
	if m.IsSessionInactive(ctx, inactivityTimeout) {
		if err := m.EndSession(ctx); err != nil {
			m.logger.Warn("end session after inactivity", zap.Error(err))
		}
		return Validation{Valid: false, Reason: ReasonSessionInactive}
	}
	m.RecordLastActivity(ctx)
	return Validation{Valid: true}
}

// CheckTokenExpiration ends the session when the token is expired. Returns
// true if it was expired and cleared.
func (m *Manager) CheckTokenExpiration(ctx context.Context) (bool, error) {
	if !m.IsTokenExpired(ctx) {
		return false, nil
	}
	return true, m.EndSession(ctx)
}

// EndSession clears the credential record and all session metadata. Safe to
// call when already logged out.
func (m *Manager) EndSession(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	for _, k := range []string{credstore.KeyTokenTimestamp, credstore.KeySessionStart, credstore.KeyLastActivity} {
		if err := m.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// SessionInfo reads the current session state for display.
func (m *Manager) SessionInfo(ctx context.Context) (Info, error) {
	token, err := m.store.Get(ctx, credstore.KeyUserToken)
	if err != nil {
		return Info{}, err
	}
	userID, err := m.store.Get(ctx, credstore.KeyUserID)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Authenticated: token != "",
		UserID:        userID,
		Expired:       m.IsTokenExpired(ctx),
	}
	if ms, ok := m.getMillis(ctx, credstore.KeyTokenTimestamp); ok {
		info.TokenExpiresAt = time.UnixMilli(ms).Add(m.ttl)
	}
	if ms, ok := m.getMillis(ctx, credstore.KeySessionStart); ok {
		info.SessionStart = time.UnixMilli(ms)
	}
	return info, nil
}
