package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "application-events"

// Redis publishes events as JSON on a pub/sub channel.
type Redis struct {
	Client  redis.UniversalClient
	Channel string
}

func (r Redis) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	channel := r.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	if err := r.Client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
