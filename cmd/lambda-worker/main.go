package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"internship-matcher/internal/bootstrap"
	"internship-matcher/internal/shared/config"
	"internship-matcher/internal/shared/metrics"
	"internship-matcher/internal/shared/telemetry"
	"internship-matcher/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	ingester workerproc.Ingester
)

func initApp() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	built, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	ingester = built.CatalogService
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processRecords(ctx, ingester, event.Records), nil
}

// processRecords reports only retryable failures; malformed or invalid
// opportunities are dropped so they do not poison the batch.
func processRecords(ctx context.Context, ing workerproc.Ingester, records []events.SQSMessage) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range records {
		metrics.IncCatalogMessage("received")
		_, err := workerproc.HandleMessage(ctx, ing, record.Body)
		switch {
		case err == nil:
			metrics.IncCatalogMessage("ingested")
		case workerproc.Unrecoverable(err):
			metrics.IncCatalogMessage("unrecoverable")
			telemetry.Error("lambda.catalog.dropped", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
		default:
			metrics.IncCatalogMessage("failed")
			telemetry.Error("lambda.catalog.failed", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
