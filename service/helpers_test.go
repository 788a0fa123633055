package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/starnotary/adapters/ledger"
	"github.com/layer-3/starnotary/adapters/metrics"
	"github.com/layer-3/starnotary/adapters/store"
	"github.com/layer-3/starnotary/adapters/tokenizer"
	"github.com/layer-3/starnotary/adapters/verifier"
	"github.com/layer-3/starnotary/core"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	blocks []core.Block
	err    error
}

func (p *recordingPublisher) PublishStarRegistered(ctx context.Context, block *core.Block) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.blocks = append(p.blocks, *block)
	return nil
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w wallet) sign(t *testing.T, message string) string {
	t.Helper()

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

type testEnv struct {
	clock    *testClock
	store    *store.MemoryStore
	ledger   *ledger.MemoryLedger
	events   *recordingPublisher
	registry *SessionRegistry
	verifier *AuthenticationVerifier
	stars    *StarService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	env := &testEnv{
		clock:  &testClock{now: time.Now().Truncate(time.Second)},
		store:  store.NewMemoryStore(),
		ledger: ledger.NewMemoryLedger(),
		events: &recordingPublisher{},
	}

	tok := tokenizer.NewJWTTokenizer(signKey)
	env.registry = NewSessionRegistry(env.store, metrics.Nop{}, 0, 0)
	env.registry.now = env.clock.Now
	env.verifier = NewAuthenticationVerifier(env.registry, verifier.NewEthVerifier(), tok, metrics.Nop{})
	env.stars = NewStarService(env.registry, tok, env.store, env.ledger, env.events, metrics.Nop{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	return env
}

// authenticate runs the challenge protocol for w and returns the result
func (e *testEnv) authenticate(t *testing.T, w wallet) *core.AuthenticationResult {
	t.Helper()

	ctx := context.Background()
	session, err := e.registry.RequestSession(ctx, w.address)
	require.NoError(t, err)

	result, err := e.verifier.Authenticate(ctx, w.address, w.sign(t, session.ChallengeMessage()))
	require.NoError(t, err)
	return result
}

var errPublish = errors.New("broker down")
