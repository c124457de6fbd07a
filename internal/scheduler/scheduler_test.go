package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"internship-matcher/internal/catalog"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(context.Background())
	if err := s.Add("bad", "every now and then", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRunSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx)
	var calls atomic.Int32
	fn := func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}
	s.run("job", fn)
	cancel()
	s.run("job", fn)
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestCatalogRefreshJob(t *testing.T) {
	repo := catalog.NewMemoryRepo()
	deadline := time.Now().Add(24 * time.Hour)
	if err := repo.Upsert(context.Background(), catalog.Opportunity{ID: "opp-1", Openings: 1, Deadline: deadline, Status: catalog.StatusOpen}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	index := catalog.NewIndex()
	svc := catalog.NewService(index, repo, nil)

	s := New(context.Background())
	if err := s.Add("catalog-refresh", "@every 1s", svc.Refresh); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	limit := time.Now().Add(3 * time.Second)
	for !index.Ready() {
		if time.Now().After(limit) {
			t.Fatalf("catalog never refreshed")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, ok := index.Get("opp-1"); !ok {
		t.Fatalf("refresh did not load opp-1")
	}
}
