package ports

import (
	"context"

	"github.com/layer-3/starnotary/core"
)

// Ledger is the append-only chain star records are registered on
type Ledger interface {
	// Append links an encoded star record after the current tip
	Append(ctx context.Context, record core.StarRecord) (*core.Block, error)
	BlockByHeight(ctx context.Context, height uint64) (*core.Block, error)
	BlockByHash(ctx context.Context, hash string) (*core.Block, error)
	// BlocksByAddress returns the address's blocks in chain order
	BlocksByAddress(ctx context.Context, address string) ([]core.Block, error)
}
