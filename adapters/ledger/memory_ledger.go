package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/starnotary/core"
)

// MemoryLedger keeps the chain in process memory
type MemoryLedger struct {
	blocks    []core.Block
	byHash    map[string]uint64
	byAddress map[string][]uint64
	mu        sync.RWMutex
	now       func() time.Time
}

// NewMemoryLedger creates a chain holding only the genesis block
func NewMemoryLedger() *MemoryLedger {
	return newMemoryLedger(time.Now)
}

func newMemoryLedger(now func() time.Time) *MemoryLedger {
	genesis := core.NewGenesisBlock(now())
	return &MemoryLedger{
		blocks:    []core.Block{genesis},
		byHash:    map[string]uint64{genesis.Hash: 0},
		byAddress: make(map[string][]uint64),
		now:       now,
	}
}

// Append links record after the tip
func (l *MemoryLedger) Append(ctx context.Context, record core.StarRecord) (*core.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	block, err := core.NewStarBlock(l.blocks[len(l.blocks)-1], record, l.now())
	if err != nil {
		return nil, err
	}
	l.blocks = append(l.blocks, block)
	l.byHash[block.Hash] = block.Height
	l.byAddress[record.Address] = append(l.byAddress[record.Address], block.Height)

	return &block, nil
}

// BlockByHeight returns the block at height
func (l *MemoryLedger) BlockByHeight(ctx context.Context, height uint64) (*core.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if height >= uint64(len(l.blocks)) {
		return nil, core.ErrBlockNotFound
	}
	block := l.blocks[height]
	return &block, nil
}

// BlockByHash returns the block with hash
func (l *MemoryLedger) BlockByHash(ctx context.Context, hash string) (*core.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	height, ok := l.byHash[hash]
	if !ok {
		return nil, core.ErrBlockNotFound
	}
	block := l.blocks[height]
	return &block, nil
}

// BlocksByAddress returns the address's blocks in chain order
func (l *MemoryLedger) BlocksByAddress(ctx context.Context, address string) ([]core.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	heights := l.byAddress[address]
	blocks := make([]core.Block, 0, len(heights))
	for _, h := range heights {
		blocks = append(blocks, l.blocks[h])
	}
	return blocks, nil
}
