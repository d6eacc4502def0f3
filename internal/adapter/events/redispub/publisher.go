package redispub

import (
	"context"
	"encoding/json"

	"mythicforge/internal/app/ports"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "mythicforge:events:"

// Channel is the per-owner pub/sub channel the game-server bridge subscribes to.
func Channel(owner string) string {
	return channelPrefix + owner
}

type Publisher struct {
	client *redis.Client
}

func New(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, event ports.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session event")
	}
	if err := p.client.Publish(ctx, Channel(string(event.Owner)), data).Err(); err != nil {
		return errors.Wrap(err, "failed to publish session event")
	}
	return nil
}

var _ ports.SessionEventPublisher = (*Publisher)(nil)
