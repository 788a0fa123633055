package ports

import (
	"context"
	"time"

	"github.com/layer-3/starnotary/core"
)

// SessionStore keeps one session per address
type SessionStore interface {
	// Load returns core.ErrSessionNotFound when the address has no session
	Load(ctx context.Context, address string) (*core.Session, error)
	Save(ctx context.Context, session *core.Session, ttl time.Duration) error
	Delete(ctx context.Context, address string) error
}

// GrantStore records used registration grants
type GrantStore interface {
	// ConsumeGrant marks the grant as used and reports whether this call was the first
	ConsumeGrant(ctx context.Context, grantID string, ttl time.Duration) (bool, error)
}
