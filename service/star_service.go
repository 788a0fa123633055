package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

// StarService registers star records for authenticated addresses and reads them back
type StarService struct {
	registry  *SessionRegistry
	tokenizer ports.Tokenizer
	grants    ports.GrantStore
	ledger    ports.Ledger
	eventPub  ports.EventPublisher
	metrics   ports.Metrics
	logger    *slog.Logger
}

// NewStarService creates a new star service
func NewStarService(
	registry *SessionRegistry,
	tokenizer ports.Tokenizer,
	grants ports.GrantStore,
	ledger ports.Ledger,
	eventPub ports.EventPublisher,
	metrics ports.Metrics,
	logger *slog.Logger,
) *StarService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StarService{
		registry:  registry,
		tokenizer: tokenizer,
		grants:    grants,
		ledger:    ledger,
		eventPub:  eventPub,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterStar appends an encoded star record for an address holding an unused grant.
// The session is consumed: another registration needs a new challenge.
func (s *StarService) RegisterStar(ctx context.Context, record core.StarRecord) (*core.Block, error) {
	// the ledger indexes the same address the session is keyed by
	record.Address = strings.TrimSpace(record.Address)
	if record.Address == "" {
		return nil, core.ErrInvalidAddress
	}
	if _, err := core.DecodeStory(record.Star.Story); err != nil {
		return nil, fmt.Errorf("star story is not encoded: %w", err)
	}

	unlock := s.registry.lock(record.Address)
	defer unlock()

	session, err := s.registry.GetSession(ctx, record.Address)
	if err != nil {
		return nil, err
	}

	now := s.registry.now()
	if session.IsExpired(now) {
		return nil, core.ErrSessionExpired
	}
	if !session.Authenticated() {
		return nil, core.ErrNotAuthenticated
	}

	grant, err := s.tokenizer.TokenToGrant(session.Grant)
	if err != nil {
		return nil, err
	}
	if grant.Address != session.Address {
		return nil, fmt.Errorf("%w: issued to another address", core.ErrInvalidGrant)
	}

	first, err := s.grants.ConsumeGrant(ctx, grant.ID, grant.ExpiresAt.Sub(now))
	if err != nil {
		return nil, fmt.Errorf("failed to consume grant: %w", err)
	}
	if !first {
		return nil, core.ErrGrantConsumed
	}

	block, err := s.ledger.Append(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to append star: %w", err)
	}
	s.metrics.StarRegistered()

	if err := s.registry.remove(ctx, session.Address); err != nil {
		// the grant is already consumed, so the stale session cannot register again
		s.logger.Warn("failed to drop used session", "address", session.Address, "error", err)
	}

	if err := s.eventPub.PublishStarRegistered(ctx, block); err != nil {
		s.logger.Warn("failed to publish star registered event", "hash", block.Hash, "error", err)
	}

	s.logger.Info("star registered", "address", session.Address, "height", block.Height, "hash", block.Hash)
	return block, nil
}

// StarByHash returns the block with hash
func (s *StarService) StarByHash(ctx context.Context, hash string) (*core.Block, error) {
	return s.ledger.BlockByHash(ctx, hash)
}

// StarByHeight returns the block at height; height 0 is the genesis block
func (s *StarService) StarByHeight(ctx context.Context, height uint64) (*core.Block, error) {
	return s.ledger.BlockByHeight(ctx, height)
}

// StarsByAddress returns every star registered by address in chain order
func (s *StarService) StarsByAddress(ctx context.Context, address string) ([]core.Block, error) {
	return s.ledger.BlocksByAddress(ctx, address)
}
