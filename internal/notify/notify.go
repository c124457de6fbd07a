// Package notify hands application lifecycle events to whatever delivers
// them to users. Delivery itself happens elsewhere; this package only
// publishes.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"internship-matcher/internal/shared/metrics"
	"internship-matcher/internal/shared/telemetry"
)

// Event describes one application state change. From is empty on creation.
type Event struct {
	ApplicationID string    `json:"applicationId"`
	ProfileID     string    `json:"profileId"`
	OpportunityID string    `json:"opportunityId"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ActorKind     string    `json:"actorKind"`
	ActorID       string    `json:"actorId"`
	Feedback      string    `json:"feedback,omitempty"`
	At            time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to the structured log. It is the fallback when no
// external channel is configured.
type Log struct{}

func (Log) Notify(_ context.Context, e Event) error {
	telemetry.Info("application.event", map[string]any{
		"application_id": e.ApplicationID,
		"opportunity_id": e.OpportunityID,
		"from":           e.From,
		"to":             e.To,
		"actor_kind":     e.ActorKind,
	})
	return nil
}

const DefaultTimeout = 5 * time.Second

// Dispatcher runs deliveries on background goroutines so callers never wait
// on notifier I/O. Failures are logged and counted, never returned.
type Dispatcher struct {
	Target  Notifier
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(target Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{Target: target, Timeout: timeout}
}

// Dispatch schedules delivery of e and returns immediately.
func (d *Dispatcher) Dispatch(e Event) {
	if d == nil || d.Target == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()
		if err := d.Target.Notify(ctx, e); err != nil {
			metrics.IncNotificationFailures()
			telemetry.Warn("notify.failed", map[string]any{
				"application_id": e.ApplicationID,
				"to":             e.To,
				"error":          err.Error(),
			})
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
