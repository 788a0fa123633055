package ports

import (
	"context"

	"github.com/layer-3/starnotary/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishStarRegistered(ctx context.Context, block *core.Block) error
}
