package matching

import (
	"context"
	"errors"
	"time"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/profiles"
	"internship-matcher/internal/shared/metrics"
	"internship-matcher/internal/shared/telemetry"
	"internship-matcher/internal/taxonomy"
)

// ProfileSource resolves stored profiles and canonicalizes inline ones.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (profiles.Profile, error)
	Normalize(raw profiles.RawProfile) (profiles.Profile, error)
}

type Service struct {
	Catalog  *catalog.Index
	Profiles ProfileSource
	Ranker   *Ranker
	Tax      *taxonomy.Taxonomy
	Now      func() time.Time
}

func NewService(index *catalog.Index, source ProfileSource, ranker *Ranker) *Service {
	if ranker == nil {
		ranker = NewRanker(DefaultMinScore, DefaultMaxPageSize)
	}
	return &Service{Catalog: index, Profiles: source, Ranker: ranker, Tax: taxonomy.Default(), Now: time.Now}
}

// Query selects a page and optionally narrows the catalog first.
type Query struct {
	Offset int
	Limit  int
	Filter catalog.Filter
}

// ForUser ranks the catalog against the caller's stored profile.
func (s *Service) ForUser(ctx context.Context, userID string, q Query) (Page, error) {
	if s == nil || s.Profiles == nil {
		return Page{}, errors.New("matching service not configured")
	}
	p, err := s.Profiles.Get(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	return s.Recommend(p, q), nil
}

// ForProfile normalizes raw and ranks the catalog against it without storing it.
func (s *Service) ForProfile(raw profiles.RawProfile, q Query) (Page, error) {
	if s == nil || s.Profiles == nil {
		return Page{}, errors.New("matching service not configured")
	}
	p, err := s.Profiles.Normalize(raw)
	if err != nil {
		return Page{}, err
	}
	return s.Recommend(p, q), nil
}

// Recommend ranks one catalog snapshot against a canonical profile.
func (s *Service) Recommend(p profiles.Profile, q Query) Page {
	start := time.Now()
	asOf := s.now()
	page := s.Ranker.Rank(p, s.Catalog.ActiveFiltered(asOf, catalog.CanonicalFilter(s.Tax, q.Filter)), asOf, q.Offset, q.Limit)

	metrics.IncRecommendationsServed()
	metrics.ObserveRecommendationDurationMs(metrics.SinceMillis(start))
	telemetry.Debug("recommendations.served", map[string]any{
		"user_id":  p.UserID,
		"total":    page.Total,
		"returned": len(page.Matches),
		"offset":   page.Offset,
		"version":  s.Catalog.Snapshot().Version(),
	})
	return page
}

// BestScore reports the top score available to userID right now, if any
// opportunity clears the ranker's floor.
func (s *Service) BestScore(ctx context.Context, userID string) (float64, bool, error) {
	page, err := s.ForUser(ctx, userID, Query{Limit: 1})
	if err != nil {
		return 0, false, err
	}
	if len(page.Matches) == 0 {
		return 0, false, nil
	}
	return page.Matches[0].Score, true, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
