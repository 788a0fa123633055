package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

// DefaultSessionRetention is how long an expired session is kept so late callers
// are told it expired rather than that it never existed
const DefaultSessionRetention = time.Hour

// SessionRegistry issues and tracks ownership challenges, one per address
type SessionRegistry struct {
	store   ports.SessionStore
	metrics ports.Metrics

	window    time.Duration
	retention time.Duration

	locks keyedMutex
	now   func() time.Time
}

// NewSessionRegistry creates a registry issuing sessions valid for window.
// Zero durations fall back to the defaults.
func NewSessionRegistry(store ports.SessionStore, metrics ports.Metrics, window, retention time.Duration) *SessionRegistry {
	if window <= 0 {
		window = core.DefaultValidationWindow
	}
	if retention <= 0 {
		retention = DefaultSessionRetention
	}
	return &SessionRegistry{
		store:     store,
		metrics:   metrics,
		window:    window,
		retention: retention,
		now:       time.Now,
	}
}

// Window returns the validation window of new sessions
func (r *SessionRegistry) Window() time.Duration {
	return r.window
}

// RequestSession issues a fresh challenge for address, replacing any previous one
func (r *SessionRegistry) RequestSession(ctx context.Context, address string) (*core.Session, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, core.ErrInvalidAddress
	}

	unlock := r.lock(address)
	defer unlock()

	prev, err := r.store.Load(ctx, address)
	if err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	issuedAt := r.now().Unix()
	// Re-issuing within the same second must still change the challenge
	if prev != nil && issuedAt <= prev.IssuedAt {
		issuedAt = prev.IssuedAt + 1
	}

	session := core.NewSession(address, issuedAt, r.window)
	if err := r.save(ctx, session); err != nil {
		return nil, err
	}

	r.metrics.SessionIssued()
	return session, nil
}

// GetSession returns the address's session without changing it
func (r *SessionRegistry) GetSession(ctx context.Context, address string) (*core.Session, error) {
	session, err := r.store.Load(ctx, strings.TrimSpace(address))
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// IsExpired reports whether the session's window has elapsed at now
func (r *SessionRegistry) IsExpired(session *core.Session, now time.Time) bool {
	return session.IsExpired(now)
}

func (r *SessionRegistry) lock(address string) func() {
	return r.locks.Lock(strings.TrimSpace(address))
}

func (r *SessionRegistry) save(ctx context.Context, session *core.Session) error {
	ttl := session.ExpiresAt().Sub(r.now()) + r.retention
	if err := r.store.Save(ctx, session, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SessionRegistry) remove(ctx context.Context, address string) error {
	if err := r.store.Delete(ctx, address); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
