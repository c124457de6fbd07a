package notify

import (
	"context"

	"internship-matcher/internal/queue"
)

// Queue publishes events as application.transition messages.
type Queue struct {
	Client queue.Client
}

func (q Queue) Notify(ctx context.Context, e Event) error {
	msg, err := queue.NewMessage(queue.TypeApplicationTransition, "", e, e.At)
	if err != nil {
		return err
	}
	return q.Client.Send(ctx, msg)
}
