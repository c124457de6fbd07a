package applications

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("application not found")
	// ErrDuplicate means a live application already holds the pair.
	ErrDuplicate = errors.New("live application exists for pair")
	// ErrStale means the stored state moved since it was read.
	ErrStale = errors.New("application state changed concurrently")
)

type Repo interface {
	// Create stores a new application together with its creation transition.
	Create(ctx context.Context, app Application, first Transition) error
	Get(ctx context.Context, id string) (Application, error)
	// FindLive returns the non-withdrawn application for the pair.
	FindLive(ctx context.Context, profileID, opportunityID string) (Application, error)
	// Update moves app from t.From to t.To and appends t to the history.
	Update(ctx context.Context, app Application, t Transition) error
	ListByProfile(ctx context.Context, profileID string) ([]Application, error)
	ListByOpportunity(ctx context.Context, opportunityID string) ([]Application, error)
	History(ctx context.Context, id string) ([]Transition, error)
}
