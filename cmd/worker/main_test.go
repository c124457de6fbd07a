package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeIngester struct {
	err error
}

func (f fakeIngester) Ingest(ctx context.Context, in catalog.Input) (catalog.Opportunity, error) {
	if f.err != nil {
		return catalog.Opportunity{}, f.err
	}
	return catalog.Opportunity{ID: in.ID}, nil
}

func sqsMessage(t *testing.T, id string, in catalog.Input) sqstypes.Message {
	t.Helper()
	env, err := queue.NewMessage(queue.TypeCatalogUpsert, "req-"+id, in, time.Now())
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	body, err := queue.EncodeMessage(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeIngester{}, sqsMessage(t, "1", catalog.Input{ID: "opp-1"}))

	if len(client.deleted) != 1 || client.deleted[0] != "r-1" {
		t.Fatalf("expected delete of r-1, got %v", client.deleted)
	}
}

func TestWorkerKeepsMessageOnStorageFailure(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeIngester{err: errors.New("db down")}, sqsMessage(t, "2", catalog.Input{ID: "opp-2"}))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesInvalidOpportunity(t *testing.T) {
	client := &fakeSQS{}
	svc := catalog.NewService(catalog.NewIndex(), nil, nil)
	handleMessage(context.Background(), client, "queue", svc, sqsMessage(t, "3", catalog.Input{ID: "opp-3", Openings: -4}))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", fakeIngester{}, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("receiveCount = %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("receiveCount = %d", got)
	}
}
