package dashboard

import (
	"context"
	"iter"
	"time"

	"golang.org/x/sync/errgroup"

	"internship-matcher/internal/applications"
	"internship-matcher/internal/catalog"
	"internship-matcher/internal/shared/apperr"
)

// ApplicationCounter tallies a profile's applications per state.
type ApplicationCounter interface {
	CountByState(ctx context.Context, profileID string) (map[applications.State]int, error)
}

// BookmarkCounter counts a profile's saved opportunities.
type BookmarkCounter interface {
	Count(ctx context.Context, profileID string) (int, error)
}

// BestMatcher reports the caller's top current match score.
type BestMatcher interface {
	BestScore(ctx context.Context, userID string) (float64, bool, error)
}

// ActiveSource yields the opportunities open at asOf.
type ActiveSource interface {
	ActiveOpportunities(asOf time.Time) iter.Seq[catalog.Opportunity]
}

// Summary is the per-user dashboard view.
type Summary struct {
	Applications        map[applications.State]int `json:"applications"`
	TotalApplications   int                        `json:"totalApplications"`
	OpenApplications    int                        `json:"openApplications"`
	Bookmarks           int                        `json:"bookmarks"`
	ActiveOpportunities int                        `json:"activeOpportunities"`
	BestMatchScore      *float64                   `json:"bestMatchScore"`
	HasProfile          bool                       `json:"hasProfile"`
	GeneratedAt         time.Time                  `json:"generatedAt"`
}

type Service struct {
	Applications ApplicationCounter
	Bookmarks    BookmarkCounter
	Matches      BestMatcher
	Catalog      ActiveSource
	Now          func() time.Time
}

func NewService(apps ApplicationCounter, marks BookmarkCounter, matches BestMatcher, cat ActiveSource) *Service {
	return &Service{Applications: apps, Bookmarks: marks, Matches: matches, Catalog: cat, Now: time.Now}
}

// Summarize builds the dashboard for userID. A user without a stored profile
// still gets counts; only the best score is left empty. The lookups run
// concurrently and the first failure cancels the rest.
func (s *Service) Summarize(ctx context.Context, userID string) (Summary, error) {
	if userID == "" {
		return Summary{}, apperr.Validation("userId", "is required")
	}
	now := s.now()
	sum := Summary{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.Applications.CountByState(gctx, userID)
		if err != nil {
			return err
		}
		sum.Applications = counts
		for st, n := range counts {
			sum.TotalApplications += n
			if !st.Terminal() {
				sum.OpenApplications += n
			}
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.Bookmarks.Count(gctx, userID)
		sum.Bookmarks = n
		return err
	})
	g.Go(func() error {
		for range s.Catalog.ActiveOpportunities(now) {
			sum.ActiveOpportunities++
		}
		return nil
	})
	g.Go(func() error {
		score, ok, err := s.Matches.BestScore(gctx, userID)
		switch {
		case apperr.Is(err, apperr.KindNotFound):
			return nil
		case err != nil:
			return err
		}
		sum.HasProfile = true
		if ok {
			sum.BestMatchScore = &score
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
