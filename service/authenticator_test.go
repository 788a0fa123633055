package service

import (
	"context"
	"testing"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	w := newWallet(t)
	ctx := context.Background()

	session, err := env.registry.RequestSession(ctx, w.address)
	require.NoError(t, err)

	env.clock.Advance(100 * time.Second)
	result, err := env.verifier.Authenticate(ctx, w.address, w.sign(t, session.ChallengeMessage()))
	require.NoError(t, err)

	assert.True(t, result.RegisterStar)
	assert.True(t, result.Status.MessageSignature)
	assert.Equal(t, w.address, result.Status.Address)
	assert.Equal(t, session.IssuedAt, result.Status.RequestTimeStamp)
	assert.Equal(t, session.ChallengeMessage(), result.Status.Message)
	assert.Equal(t, int64(200), result.Status.ValidationWindow)

	stored, err := env.registry.GetSession(ctx, w.address)
	require.NoError(t, err)
	assert.True(t, stored.Authenticated())
	assert.Equal(t, session.IssuedAt, stored.IssuedAt)
}

func TestAuthenticateWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	w := newWallet(t)

	_, err := env.verifier.Authenticate(context.Background(), w.address, w.sign(t, "anything"))
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestAuthenticateExpiredBeforeSignature(t *testing.T) {
	env := newTestEnv(t)
	w := newWallet(t)
	ctx := context.Background()

	session, err := env.registry.RequestSession(ctx, w.address)
	require.NoError(t, err)
	validSig := w.sign(t, session.ChallengeMessage())

	env.clock.Advance(301 * time.Second)
	_, err = env.verifier.Authenticate(ctx, w.address, validSig)
	assert.ErrorIs(t, err, core.ErrSessionExpired)
	assert.NotErrorIs(t, err, core.ErrSignatureInvalid)

	// an invalid signature on an expired session is still reported as expiry
	_, err = env.verifier.Authenticate(ctx, w.address, "0x00")
	assert.ErrorIs(t, err, core.ErrSessionExpired)
}

func TestAuthenticateInvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	w := newWallet(t)
	impostor := newWallet(t)
	ctx := context.Background()

	session, err := env.registry.RequestSession(ctx, w.address)
	require.NoError(t, err)

	result, err := env.verifier.Authenticate(ctx, w.address, impostor.sign(t, session.ChallengeMessage()))
	require.ErrorIs(t, err, core.ErrSignatureInvalid)
	require.NotNil(t, result)
	assert.False(t, result.RegisterStar)
	assert.False(t, result.Status.MessageSignature)
	assert.Equal(t, int64(300), result.Status.ValidationWindow)

	stored, err := env.registry.GetSession(ctx, w.address)
	require.NoError(t, err)
	assert.False(t, stored.Authenticated())
}

func TestAuthenticateStaleChallenge(t *testing.T) {
	env := newTestEnv(t)
	w := newWallet(t)
	ctx := context.Background()

	old, err := env.registry.RequestSession(ctx, w.address)
	require.NoError(t, err)
	_, err = env.registry.RequestSession(ctx, w.address)
	require.NoError(t, err)

	_, err = env.verifier.Authenticate(ctx, w.address, w.sign(t, old.ChallengeMessage()))
	assert.ErrorIs(t, err, core.ErrSignatureInvalid)
}

func TestAuthenticateMalformedAddress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.registry.RequestSession(ctx, exampleAddress)
	require.NoError(t, err)

	result, err := env.verifier.Authenticate(ctx, exampleAddress, "0x00")
	assert.ErrorIs(t, err, core.ErrSignatureInvalid)
	require.NotNil(t, result)
	assert.False(t, result.RegisterStar)
	assert.False(t, result.Status.MessageSignature)
	assert.Equal(t, exampleAddress, result.Status.Address)

	// the challenge stays open
	stored, err := env.registry.GetSession(ctx, exampleAddress)
	require.NoError(t, err)
	assert.False(t, stored.Authenticated())
}
