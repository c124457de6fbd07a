package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/queue"
)

type stubIngester struct{ err error }

func (s stubIngester) Ingest(ctx context.Context, in catalog.Input) (catalog.Opportunity, error) {
	return catalog.Opportunity{ID: in.ID}, s.err
}

func record(t *testing.T, id string) events.SQSMessage {
	t.Helper()
	msg, err := queue.NewMessage(queue.TypeCatalogUpsert, "", catalog.Input{ID: id}, time.Now())
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	body, _ := queue.EncodeMessage(msg)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessRecordsReportsOnlyRetryableFailures(t *testing.T) {
	records := []events.SQSMessage{
		record(t, "ok"),
		{MessageId: "garbage", Body: "not json"},
	}
	resp := processRecords(context.Background(), stubIngester{}, records)
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}

	resp = processRecords(context.Background(), stubIngester{err: errors.New("db down")}, []events.SQSMessage{record(t, "retry")})
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "retry" {
		t.Fatalf("expected one retryable failure, got %+v", resp.BatchItemFailures)
	}
}
