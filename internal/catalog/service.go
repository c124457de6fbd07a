package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/metrics"
	"internship-matcher/internal/shared/telemetry"
	"internship-matcher/internal/taxonomy"
)

// Service is the single ingestion path into the catalog: it validates, persists
// to Repo, then publishes into Index.
type Service struct {
	Index *Index
	Repo  Repo
	Tax   *taxonomy.Taxonomy
	Now   func() time.Time

	writeMu sync.Mutex
}

func NewService(index *Index, repo Repo, tax *taxonomy.Taxonomy) *Service {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Service{Index: index, Repo: repo, Tax: tax, Now: time.Now}
}

// Rejection describes one opportunity refused at ingestion.
type Rejection struct {
	ID      string `json:"id"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// BatchResult summarizes a multi-opportunity ingestion.
type BatchResult struct {
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// Ingest validates and stores one opportunity. Invalid data is logged and
// returned as an invalid_opportunity error.
func (s *Service) Ingest(ctx context.Context, in Input) (Opportunity, error) {
	return s.ingest(ctx, in, "")
}

// IngestAs stores in on behalf of employerID. The posting is recorded as
// employerID's, and an opportunity already owned by another employer is
// refused with a forbidden error.
func (s *Service) IngestAs(ctx context.Context, employerID string, in Input) (Opportunity, error) {
	if employerID == "" {
		return Opportunity{}, apperr.Forbidden("employer identity required")
	}
	in.PostedBy = employerID
	return s.ingest(ctx, in, employerID)
}

func (s *Service) ingest(ctx context.Context, in Input, owner string) (Opportunity, error) {
	o, err := Validate(in, s.Tax)
	if err != nil {
		s.reject(in.ID, err)
		return Opportunity{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	o.CreatedAt, o.UpdatedAt = now, now
	if existing, ok := s.Index.Get(o.ID); ok {
		if owner != "" && existing.PostedBy != "" && existing.PostedBy != owner {
			telemetry.Warn("catalog.ownership_denied", map[string]any{
				"opportunity_id": o.ID,
				"owner":          existing.PostedBy,
				"caller":         owner,
			})
			return Opportunity{}, apperr.Forbidden("opportunity belongs to another employer")
		}
		o.CreatedAt = existing.CreatedAt
	}
	if s.Repo != nil {
		if err := s.Repo.Upsert(ctx, o); err != nil {
			return Opportunity{}, err
		}
	}
	if err := s.Index.Upsert(o); err != nil {
		s.reject(o.ID, err)
		return Opportunity{}, err
	}

	metrics.IncCatalogUpserts()
	telemetry.Info("catalog.upsert", map[string]any{
		"opportunity_id": o.ID,
		"status":         string(o.Status),
		"openings":       o.Openings,
		"deadline":       o.Deadline.Format(time.RFC3339),
	})
	return o, nil
}

// IngestBatch ingests every input, collecting rejections instead of stopping.
// Only storage failures abort the batch.
func (s *Service) IngestBatch(ctx context.Context, inputs []Input) (BatchResult, error) {
	var res BatchResult
	for _, in := range inputs {
		if _, err := s.Ingest(ctx, in); err != nil {
			rej, ok := rejectionFor(in.ID, err)
			if !ok {
				return res, err
			}
			res.Rejected = append(res.Rejected, rej)
			continue
		}
		res.Accepted++
	}
	return res, nil
}

// Get returns a stored opportunity regardless of status.
func (s *Service) Get(ctx context.Context, id string) (Opportunity, error) {
	if o, ok := s.Index.Get(id); ok {
		return o, nil
	}
	return Opportunity{}, apperr.NotFound("opportunity", id)
}

// List returns active opportunities matching filter, soonest deadline first.
func (s *Service) List(asOf time.Time, filter Filter) []Opportunity {
	out := slices.Collect(s.Index.ActiveFiltered(asOf, CanonicalFilter(s.Tax, filter)))
	slices.SortFunc(out, func(a, b Opportunity) int {
		if c := a.Deadline.Compare(b.Deadline); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Refresh rebuilds the index from Repo and marks the catalog ready. Ingests
// wait while the repo is read.
func (s *Service) Refresh(ctx context.Context) error {
	if s.Repo == nil {
		s.Index.MarkReady()
		return nil
	}

	// Ingest writes the repo and the index under writeMu; reading the repo
	// outside it would let a stale list overwrite a newer upsert.
	s.writeMu.Lock()
	opps, err := s.Repo.List(ctx)
	if err != nil {
		s.writeMu.Unlock()
		return err
	}
	for i := range opps {
		if opps[i].LocationKey == "" {
			opps[i].LocationKey = s.Tax.Location(opps[i].Location)
		}
	}
	rejected := s.Index.Replace(opps)
	s.writeMu.Unlock()

	for _, err := range rejected {
		s.reject("", err)
	}
	s.Index.MarkReady()
	telemetry.Info("catalog.refresh", map[string]any{
		"count":    len(opps) - len(rejected),
		"rejected": len(rejected),
		"version":  s.Index.Snapshot().Version(),
	})
	return nil
}

// CanonicalFilter maps user-supplied sector and location text onto the keys
// the secondary indexes use.
func CanonicalFilter(tax *taxonomy.Taxonomy, f Filter) Filter {
	if tax == nil {
		tax = taxonomy.Default()
	}
	var out Filter
	if strings.TrimSpace(f.Sector) != "" {
		out.Sector = tax.Sector(f.Sector)
	}
	if strings.TrimSpace(f.Location) != "" {
		out.Location = tax.Location(f.Location)
	}
	return out
}

func (s *Service) reject(id string, err error) {
	metrics.IncCatalogRejected()
	fields := map[string]any{"error": err.Error()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		fields["field"] = appErr.Field
		if appErr.ID != "" {
			id = appErr.ID
		}
	}
	fields["opportunity_id"] = id
	telemetry.Warn("catalog.rejected", fields)
}

func rejectionFor(id string, err error) (Rejection, bool) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInvalidOpportunity {
		return Rejection{}, false
	}
	if appErr.ID != "" {
		id = appErr.ID
	}
	return Rejection{ID: id, Field: appErr.Field, Message: appErr.Message}, true
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
