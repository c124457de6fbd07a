package catalog

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "opportunity not found" }

// Repo is the durable copy of the catalog the Index is rebuilt from.
type Repo interface {
	Upsert(ctx context.Context, o Opportunity) error
	Get(ctx context.Context, id string) (Opportunity, error)
	List(ctx context.Context) ([]Opportunity, error)
}
