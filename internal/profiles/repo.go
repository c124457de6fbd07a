package profiles

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "profile not found" }

type Repo interface {
	Put(ctx context.Context, profile Profile) error
	Get(ctx context.Context, userID string) (Profile, error)
}
