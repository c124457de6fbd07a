package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/queue"
	"internship-matcher/internal/shared/storage/object/local"
)

func TestPublishFeedSendsWellFormedElements(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	feed := `[{"id":"opp-1","location":"Pune","sector":"Tech","deadline":"2030-01-01T00:00:00Z"}, 7, {"id":"opp-2"}]`
	if _, err := store.Put(ctx, "feeds/a.json", "application/json", strings.NewReader(feed)); err != nil {
		t.Fatalf("put: %v", err)
	}

	var sent []queue.Message
	client := queue.ClientFunc(func(_ context.Context, msg queue.Message) error {
		sent = append(sent, msg)
		return nil
	})
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sum, err := publishFeed(ctx, store, client, "feeds/a.json", func() time.Time { return at })
	if err != nil {
		t.Fatalf("publishFeed: %v", err)
	}
	if sum.Published != 2 || len(sum.Skipped) != 1 || sum.Skipped[0].ID != "#1" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if sent[0].Type != queue.TypeCatalogUpsert || sent[0].RequestID == "" {
		t.Fatalf("unexpected envelope: %+v", sent[0])
	}
	var in catalog.Input
	if err := sent[0].DecodePayload(&in); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if in.ID != "opp-1" || in.Location != "Pune" {
		t.Fatalf("unexpected payload: %+v", in)
	}
}

func TestPublishFeedStopsOnSendError(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	if _, err := store.Put(ctx, "f.json", "application/json", strings.NewReader(`[{"id":"a"},{"id":"b"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	calls := 0
	client := queue.ClientFunc(func(context.Context, queue.Message) error {
		calls++
		return errors.New("throttled")
	})

	sum, err := publishFeed(ctx, store, client, "f.json", time.Now)
	if err == nil || !strings.Contains(err.Error(), "send a") {
		t.Fatalf("expected send error, got %v", err)
	}
	if calls != 1 || sum.Published != 0 {
		t.Fatalf("expected to stop after first failure, calls=%d published=%d", calls, sum.Published)
	}
}
