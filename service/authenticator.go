package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

// AuthenticationVerifier checks signatures against outstanding challenges
type AuthenticationVerifier struct {
	registry  *SessionRegistry
	verifier  ports.SignatureVerifier
	tokenizer ports.Tokenizer
	metrics   ports.Metrics
}

// NewAuthenticationVerifier creates a verifier over the registry's sessions
func NewAuthenticationVerifier(
	registry *SessionRegistry,
	verifier ports.SignatureVerifier,
	tokenizer ports.Tokenizer,
	metrics ports.Metrics,
) *AuthenticationVerifier {
	return &AuthenticationVerifier{
		registry:  registry,
		verifier:  verifier,
		tokenizer: tokenizer,
		metrics:   metrics,
	}
}

// Authenticate checks signature against the address's challenge.
// A valid signature attaches a single-use registration grant to the session.
// An invalid one returns the negative result together with core.ErrSignatureInvalid.
func (a *AuthenticationVerifier) Authenticate(ctx context.Context, address, signature string) (*core.AuthenticationResult, error) {
	unlock := a.registry.lock(address)
	defer unlock()

	session, err := a.registry.GetSession(ctx, address)
	if err != nil {
		return nil, err
	}

	now := a.registry.now()
	if session.IsExpired(now) {
		return nil, core.ErrSessionExpired
	}

	if err := a.verifier.VerifySignature(session.ChallengeMessage(), signature, session.Address); err != nil {
		if !errors.Is(err, core.ErrSignatureInvalid) {
			return nil, err
		}
		a.metrics.Authenticated(false)
		return core.NewAuthenticationResult(session, false, now), err
	}

	grant := &core.Grant{
		ID:        uuid.New().String(),
		Address:   session.Address,
		IssuedAt:  now,
		ExpiresAt: session.ExpiresAt(),
	}
	token, err := a.tokenizer.GrantToToken(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}

	session.Grant = token
	if err := a.registry.save(ctx, session); err != nil {
		return nil, err
	}

	a.metrics.Authenticated(true)
	return core.NewAuthenticationResult(session, true, now), nil
}
