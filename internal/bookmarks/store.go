package bookmarks

import (
	"context"
	"iter"
	"time"
)

type Bookmark struct {
	ProfileID     string    `json:"profileId"`
	OpportunityID string    `json:"opportunityId"`
	SavedAt       time.Time `json:"savedAt"`
}

// Store persists bookmarks. Save and Remove are idempotent; Toggle flips the
// pair in one atomic step on the backend.
type Store interface {
	// Save keeps the original SavedAt when the pair already exists.
	Save(ctx context.Context, b Bookmark) (created bool, err error)
	Remove(ctx context.Context, profileID, opportunityID string) (removed bool, err error)
	// Toggle removes the pair if present, otherwise saves b. It reports the new state.
	Toggle(ctx context.Context, b Bookmark) (saved bool, err error)
	Exists(ctx context.Context, profileID, opportunityID string) (bool, error)
	Count(ctx context.Context, profileID string) (int, error)
	// List yields the profile's bookmarks, newest first, ties by opportunity id.
	List(ctx context.Context, profileID string) iter.Seq2[Bookmark, error]
}

func compareNewestFirst(a, b Bookmark) int {
	if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
		return c
	}
	switch {
	case a.OpportunityID < b.OpportunityID:
		return -1
	case a.OpportunityID > b.OpportunityID:
		return 1
	}
	return 0
}
