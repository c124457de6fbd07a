package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/storage/object"
	"internship-matcher/internal/shared/storage/object/local"
)

var fixedNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestService() *Service {
	svc := NewService(NewIndex(), NewMemoryRepo(), nil)
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func TestIngestPublishesAndKeepsCreatedAt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, validInput()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	svc.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	in := validInput()
	in.Openings = 5
	o, err := svc.Ingest(ctx, in)
	if err != nil {
		t.Fatalf("Ingest update: %v", err)
	}
	if !o.CreatedAt.Equal(fixedNow) || !o.UpdatedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("timestamps = %v / %v", o.CreatedAt, o.UpdatedAt)
	}
	got, err := svc.Get(ctx, "opp-1")
	if err != nil || got.Openings != 5 {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	stored, err := svc.Repo.Get(ctx, "opp-1")
	if err != nil || stored.Openings != 5 {
		t.Fatalf("repo = %+v, %v", stored, err)
	}
}

func TestIngestRejectsWithoutTouchingIndex(t *testing.T) {
	svc := newTestService()
	in := validInput()
	in.Openings = -1
	_, err := svc.Ingest(context.Background(), in)
	if !apperr.Is(err, apperr.KindInvalidOpportunity) {
		t.Fatalf("expected invalid_opportunity, got %v", err)
	}
	if svc.Index.Snapshot().Len() != 0 {
		t.Fatalf("index must stay empty")
	}
}

func TestGetUnknownIsNotFound(t *testing.T) {
	_, err := newTestService().Get(context.Background(), "missing")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestIngestBatchCollectsRejections(t *testing.T) {
	svc := newTestService()
	bad := validInput()
	bad.ID = "opp-bad"
	bad.Deadline = "soon"
	second := validInput()
	second.ID = "opp-2"

	res, err := svc.IngestBatch(context.Background(), []Input{validInput(), bad, second})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Accepted != 2 || len(res.Rejected) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Rejected[0].ID != "opp-bad" || res.Rejected[0].Field != "deadline" {
		t.Fatalf("rejection = %+v", res.Rejected[0])
	}
}

func TestListOrdersByDeadlineAndFilters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, tc := range []struct{ id, sector, loc, deadline string }{
		{"late", "IT", "Bengaluru", "2026-09-01"},
		{"early", "software", "Bangalore", "2026-07-01"},
		{"fin", "Banking", "Mumbai", "2026-06-15"},
	} {
		in := validInput()
		in.ID, in.Sector, in.Location, in.Deadline = tc.id, tc.sector, tc.loc, tc.deadline
		if _, err := svc.Ingest(ctx, in); err != nil {
			t.Fatalf("Ingest %s: %v", tc.id, err)
		}
	}

	all := svc.List(fixedNow, Filter{})
	if len(all) != 3 || all[0].ID != "fin" || all[2].ID != "late" {
		t.Fatalf("unexpected order %v", all)
	}
	it := svc.List(fixedNow, Filter{Sector: "Information Technology", Location: "BLR"})
	if len(it) != 2 || it[0].ID != "early" {
		t.Fatalf("filtered = %v", it)
	}
}

func TestRefreshRebuildsFromRepo(t *testing.T) {
	repo := NewMemoryRepo()
	o := storedOpportunity()
	o.LocationKey = ""
	if err := repo.Upsert(context.Background(), o); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(NewIndex(), repo, nil)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !svc.Index.Ready() {
		t.Fatalf("expected ready after refresh")
	}
	got, ok := svc.Index.Get("opp-42")
	if !ok || got.LocationKey != "pune" {
		t.Fatalf("refreshed entry = %+v", got)
	}
}

func TestFeedExportImportRoundTrip(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()

	src := newTestService()
	second := validInput()
	second.ID = "opp-2"
	if _, err := src.IngestBatch(ctx, []Input{validInput(), second}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := src.ExportSnapshot(ctx, store, "snapshots/catalog.json")
	if err != nil || n != 2 {
		t.Fatalf("ExportSnapshot = %d, %v", n, err)
	}

	dst := newTestService()
	res, err := dst.ImportFeed(ctx, store, "snapshots/catalog.json")
	if err != nil {
		t.Fatalf("ImportFeed: %v", err)
	}
	if res.Accepted != 2 || len(res.Rejected) != 0 {
		t.Fatalf("result = %+v", res)
	}
	got, ok := dst.Index.Get("opp-2")
	if !ok || got.Sector != "it" || got.LocationKey != "bangalore" {
		t.Fatalf("imported = %+v", got)
	}
}

func TestImportFeedRecordsMalformedElements(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()
	feed := `[
  {"id":"ok","location":"Pune","sector":"IT","deadline":"2026-12-01","openings":1},
  {"id":"neg","location":"Pune","sector":"IT","deadline":"2026-12-01","openings":-4},
  {"id":7}
]`
	if _, err := store.Put(ctx, "feeds/a.json", "application/json", strings.NewReader(feed)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := newTestService().ImportFeed(ctx, store, "feeds/a.json")
	if err != nil {
		t.Fatalf("ImportFeed: %v", err)
	}
	if res.Accepted != 1 || len(res.Rejected) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Rejected[0].ID != "neg" || res.Rejected[1].ID != "#2" {
		t.Fatalf("rejections = %+v", res.Rejected)
	}
}

func TestImportFeedMissingKey(t *testing.T) {
	_, err := newTestService().ImportFeed(context.Background(), local.New(t.TempDir()), "nope.json")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportFeedRejectsNonArray(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()
	if _, err := store.Put(ctx, "feeds/obj.json", "application/json", strings.NewReader(`{"id":"x"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := newTestService().ImportFeed(ctx, store, "feeds/obj.json"); err == nil {
		t.Fatalf("expected error for non-array feed")
	}
}

// pausingRepo blocks List after it has read the rows until release is closed.
type pausingRepo struct {
	*MemoryRepo
	listed  chan struct{}
	release chan struct{}
}

func (r *pausingRepo) List(ctx context.Context) ([]Opportunity, error) {
	opps, err := r.MemoryRepo.List(ctx)
	close(r.listed)
	<-r.release
	return opps, err
}

func TestRefreshDoesNotRevertConcurrentIngest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	if _, err := svc.Ingest(ctx, validInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := &pausingRepo{MemoryRepo: svc.Repo.(*MemoryRepo), listed: make(chan struct{}), release: make(chan struct{})}
	svc.Repo = repo

	refreshed := make(chan error, 1)
	go func() { refreshed <- svc.Refresh(ctx) }()
	<-repo.listed

	ingested := make(chan error, 1)
	go func() {
		in := validInput()
		in.Openings = 0
		_, err := svc.Ingest(ctx, in)
		ingested <- err
	}()
	close(repo.release)

	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := <-ingested; err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	got, ok := svc.Index.Get("opp-1")
	if !ok || got.Openings != 0 {
		t.Fatalf("index = %+v, want openings 0", got)
	}
	if got.ActiveAt(fixedNow) {
		t.Fatalf("full opportunity must not be active")
	}
	stored, err := repo.Get(ctx, "opp-1")
	if err != nil || stored.Openings != 0 {
		t.Fatalf("repo = %+v, %v", stored, err)
	}
}

func TestIngestAsEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	in := validInput()
	in.PostedBy = "someone-else"
	o, err := svc.IngestAs(ctx, "emp-A", in)
	if err != nil {
		t.Fatalf("IngestAs: %v", err)
	}
	if o.PostedBy != "emp-A" {
		t.Fatalf("postedBy = %q, want emp-A", o.PostedBy)
	}

	takeover := validInput()
	takeover.Openings = 0
	if _, err := svc.IngestAs(ctx, "emp-B", takeover); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	got, _ := svc.Index.Get("opp-1")
	if got.PostedBy != "emp-A" || got.Openings != 2 {
		t.Fatalf("index changed by foreign employer: %+v", got)
	}

	update := validInput()
	update.Openings = 4
	if _, err := svc.IngestAs(ctx, "emp-A", update); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if _, err := svc.IngestAs(ctx, "", validInput()); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden without identity, got %v", err)
	}
}
