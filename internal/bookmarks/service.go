package bookmarks

import (
	"context"
	"iter"
	"strings"
	"time"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/keylock"
	"internship-matcher/internal/shared/telemetry"
)

// OpportunityLookup finds stored opportunities regardless of status.
type OpportunityLookup interface {
	Get(id string) (catalog.Opportunity, bool)
}

// Service manages saved opportunities. Bookmarks never touch applications.
type Service struct {
	Store   Store
	Catalog OpportunityLookup
	Locks   *keylock.Table
	Now     func() time.Time
}

func NewService(store Store, lookup OpportunityLookup) *Service {
	return &Service{Store: store, Catalog: lookup, Locks: &keylock.Table{}, Now: time.Now}
}

// Save bookmarks the opportunity. Saving twice keeps the first SavedAt.
func (s *Service) Save(ctx context.Context, profileID, opportunityID string) error {
	b, err := s.bookmark(profileID, opportunityID)
	if err != nil {
		return err
	}
	unlock := s.Locks.Lock(profileID, opportunityID)
	defer unlock()
	created, err := s.Store.Save(ctx, b)
	if err != nil {
		return err
	}
	if created {
		telemetry.Debug("bookmark.saved", map[string]any{"profile_id": profileID, "opportunity_id": opportunityID})
	}
	return nil
}

// Remove is a no-op when the pair is not saved.
func (s *Service) Remove(ctx context.Context, profileID, opportunityID string) error {
	if err := checkIDs(profileID, opportunityID); err != nil {
		return err
	}
	unlock := s.Locks.Lock(profileID, opportunityID)
	defer unlock()
	_, err := s.Store.Remove(ctx, profileID, opportunityID)
	return err
}

// Toggle flips the pair and reports whether it is now saved.
func (s *Service) Toggle(ctx context.Context, profileID, opportunityID string) (bool, error) {
	b, err := s.bookmark(profileID, opportunityID)
	if err != nil {
		// A bookmark on an opportunity that has since disappeared can still be cleared.
		if apperr.Is(err, apperr.KindNotFound) {
			if saved, existsErr := s.Store.Exists(ctx, profileID, opportunityID); existsErr == nil && saved {
				_, rmErr := s.Store.Remove(ctx, profileID, opportunityID)
				return false, rmErr
			}
		}
		return false, err
	}
	unlock := s.Locks.Lock(profileID, opportunityID)
	defer unlock()
	return s.Store.Toggle(ctx, b)
}

// List yields the profile's bookmarks newest first.
func (s *Service) List(ctx context.Context, profileID string) iter.Seq2[Bookmark, error] {
	return s.Store.List(ctx, profileID)
}

// Opportunities resolves the profile's bookmarks to catalog entries in
// bookmark order. Entries no longer in the catalog are skipped.
func (s *Service) Opportunities(ctx context.Context, profileID string) ([]catalog.Opportunity, error) {
	out := []catalog.Opportunity{}
	for b, err := range s.Store.List(ctx, profileID) {
		if err != nil {
			return nil, err
		}
		if o, ok := s.Catalog.Get(b.OpportunityID); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context, profileID string) (int, error) {
	return s.Store.Count(ctx, profileID)
}

func (s *Service) bookmark(profileID, opportunityID string) (Bookmark, error) {
	if err := checkIDs(profileID, opportunityID); err != nil {
		return Bookmark{}, err
	}
	if _, ok := s.Catalog.Get(opportunityID); !ok {
		return Bookmark{}, apperr.NotFound("opportunity", opportunityID)
	}
	return Bookmark{ProfileID: profileID, OpportunityID: opportunityID, SavedAt: s.now()}, nil
}

func checkIDs(profileID, opportunityID string) error {
	switch {
	case strings.TrimSpace(profileID) == "":
		return apperr.Validation("profileId", "is required")
	case strings.TrimSpace(opportunityID) == "":
		return apperr.Validation("opportunityId", "is required")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
