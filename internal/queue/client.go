package queue

import "context"

// Client delivers envelopes to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ClientFunc lets a plain function act as a Client.
type ClientFunc func(ctx context.Context, msg Message) error

func (f ClientFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
