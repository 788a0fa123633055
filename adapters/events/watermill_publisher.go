package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

// DefaultTopic is the topic star registrations are published on
const DefaultTopic = "starnotary.star_registered"

// StarRegisteredEvent announces a new star block
type StarRegisteredEvent struct {
	Address string `json:"address"`
	Hash    string `json:"hash"`
	Height  uint64 `json:"height"`
	Time    string `json:"time"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topic string) ports.EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// PublishStarRegistered publishes a star registered event
func (p *WatermillPublisher) PublishStarRegistered(ctx context.Context, block *core.Block) error {
	record, err := block.StarRecord()
	if err != nil {
		return fmt.Errorf("failed to read star record: %w", err)
	}

	event := StarRegisteredEvent{
		Address: record.Address,
		Hash:    block.Hash,
		Height:  block.Height,
		Time:    block.Time,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("block_hash", block.Hash)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
