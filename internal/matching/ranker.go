package matching

import (
	"iter"
	"slices"
	"strings"
	"time"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/profiles"
)

const (
	DefaultMinScore    = 0.05
	DefaultPageSize    = 20
	DefaultMaxPageSize = 50
)

// Ranker filters, orders and pages scored matches.
type Ranker struct {
	Scorer          Scorer
	MinScore        float64
	DefaultPageSize int
	MaxPageSize     int
}

func NewRanker(minScore float64, maxPageSize int) *Ranker {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Ranker{
		MinScore:        minScore,
		DefaultPageSize: min(DefaultPageSize, maxPageSize),
		MaxPageSize:     maxPageSize,
	}
}

type Page struct {
	Matches []Match `json:"matches"`
	Total   int     `json:"total"`
	Offset  int     `json:"offset"`
	Limit   int     `json:"limit"`
}

// Rank scores every opportunity in opps against p and returns the requested
// page. Opportunities that are not active at asOf are dropped even if the
// sequence yields them. Output depends only on the inputs.
func (r *Ranker) Rank(p profiles.Profile, opps iter.Seq[catalog.Opportunity], asOf time.Time, offset, limit int) Page {
	limit = r.pageSize(limit)
	offset = max(0, offset)

	var all []Match
	for o := range opps {
		if !o.ActiveAt(asOf) {
			continue
		}
		m := r.Scorer.Score(p, o)
		if m.Score < r.MinScore {
			continue
		}
		all = append(all, m)
	}
	slices.SortFunc(all, compareMatches)

	page := Page{Matches: []Match{}, Total: len(all), Offset: offset, Limit: limit}
	if offset < len(all) {
		page.Matches = all[offset:min(len(all), offset+limit)]
	}
	return page
}

func (r *Ranker) pageSize(limit int) int {
	maxSize := r.MaxPageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	if limit <= 0 {
		limit = r.DefaultPageSize
		if limit <= 0 {
			limit = DefaultPageSize
		}
	}
	return min(limit, maxSize)
}

// compareMatches orders by score desc, deadline asc, then id.
func compareMatches(a, b Match) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	if c := a.Opportunity.Deadline.Compare(b.Opportunity.Deadline); c != 0 {
		return c
	}
	return strings.Compare(a.Opportunity.ID, b.Opportunity.ID)
}
