package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/redis/go-redis/v9"
)

const maxAppendAttempts = 10

// ErrAppendConflict is returned when concurrent writers keep moving the tip
var ErrAppendConflict = errors.New("ledger append conflict")

// RedisLedger stores the chain as a Redis list with hash and address indexes
type RedisLedger struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLedger opens the chain under prefix, writing the genesis block if the chain is empty
func NewRedisLedger(ctx context.Context, client *redis.Client, prefix string) (*RedisLedger, error) {
	if prefix == "" {
		prefix = "starnotary:"
	}
	l := &RedisLedger{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
	if err := l.ensureGenesis(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *RedisLedger) chainKey() string {
	return l.prefix + "chain"
}

func (l *RedisLedger) hashKey() string {
	return l.prefix + "hashes"
}

func (l *RedisLedger) addressKey(address string) string {
	return l.prefix + "address:" + address
}

func (l *RedisLedger) ensureGenesis(ctx context.Context) error {
	err := l.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, l.chainKey()).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		genesis := core.NewGenesisBlock(l.now())
		data, err := json.Marshal(genesis)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, l.chainKey(), data)
			pipe.HSet(ctx, l.hashKey(), genesis.Hash, 0)
			return nil
		})
		return err
	}, l.chainKey())
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("failed to write genesis block: %w", err)
	}
	return nil
}

// Append links record after the tip inside an optimistic transaction on the chain key
func (l *RedisLedger) Append(ctx context.Context, record core.StarRecord) (*core.Block, error) {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		var block core.Block
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.LIndex(ctx, l.chainKey(), -1).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return fmt.Errorf("ledger has no genesis block: %w", core.ErrBlockNotFound)
				}
				return err
			}
			var tip core.Block
			if err := json.Unmarshal(raw, &tip); err != nil {
				return fmt.Errorf("failed to decode tip: %w", err)
			}

			block, err = core.NewStarBlock(tip, record, l.now())
			if err != nil {
				return err
			}
			data, err := json.Marshal(block)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.RPush(ctx, l.chainKey(), data)
				pipe.HSet(ctx, l.hashKey(), block.Hash, block.Height)
				pipe.RPush(ctx, l.addressKey(record.Address), block.Height)
				return nil
			})
			return err
		}, l.chainKey())

		if err == nil {
			return &block, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("failed to append block: %w", err)
		}
	}
	return nil, ErrAppendConflict
}

// BlockByHeight returns the block at height
func (l *RedisLedger) BlockByHeight(ctx context.Context, height uint64) (*core.Block, error) {
	// LINDEX counts negative indexes from the tail
	if height > math.MaxInt64 {
		return nil, core.ErrBlockNotFound
	}
	raw, err := l.client.LIndex(ctx, l.chainKey(), int64(height)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to read block %d: %w", height, err)
	}
	return decodeBlock(raw)
}

// BlockByHash returns the block with hash
func (l *RedisLedger) BlockByHash(ctx context.Context, hash string) (*core.Block, error) {
	height, err := l.client.HGet(ctx, l.hashKey(), hash).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to look up block hash: %w", err)
	}
	return l.BlockByHeight(ctx, height)
}

// BlocksByAddress returns the address's blocks in chain order
func (l *RedisLedger) BlocksByAddress(ctx context.Context, address string) ([]core.Block, error) {
	heights, err := l.client.LRange(ctx, l.addressKey(address), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read address index: %w", err)
	}
	if len(heights) == 0 {
		return []core.Block{}, nil
	}

	cmds := make([]*redis.StringCmd, 0, len(heights))
	_, err = l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, h := range heights {
			height, err := strconv.ParseInt(h, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt address index entry %q: %w", h, err)
			}
			if height < 0 {
				return fmt.Errorf("corrupt address index entry %q", h)
			}
			cmds = append(cmds, pipe.LIndex(ctx, l.chainKey(), height))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read address blocks: %w", err)
	}

	blocks := make([]core.Block, 0, len(cmds))
	for _, cmd := range cmds {
		raw, err := cmd.Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to read address block: %w", err)
		}
		block, err := decodeBlock(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *block)
	}
	return blocks, nil
}

func decodeBlock(raw []byte) (*core.Block, error) {
	var block core.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("failed to decode block: %w", err)
	}
	return &block, nil
}
