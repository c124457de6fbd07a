package main

// Catalog feed tooling:
//   go run ./cmd/ingest -import feeds/2026-spring.json
//   go run ./cmd/ingest -export snapshots/catalog.json
//   go run ./cmd/ingest -publish feeds/2026-spring.json   (sends catalog.upsert messages to CATALOG_QUEUE_URL)

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"internship-matcher/internal/bootstrap"
	"internship-matcher/internal/catalog"
	"internship-matcher/internal/queue"
	"internship-matcher/internal/shared/config"
	"internship-matcher/internal/shared/storage/object"
	"internship-matcher/internal/shared/telemetry"
)

// publishSummary reports a -publish run.
type publishSummary struct {
	Key       string              `json:"key"`
	Published int                 `json:"published"`
	Skipped   []catalog.Rejection `json:"skipped,omitempty"`
}

func main() {
	importKey := flag.String("import", "", "object key of a JSON array feed to ingest")
	exportKey := flag.String("export", "", "object key to write a catalog snapshot to")
	publishKey := flag.String("publish", "", "object key of a feed to enqueue as catalog.upsert messages")
	flag.Parse()

	if *importKey == "" && *exportKey == "" && *publishKey == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	if *importKey != "" {
		res, err := app.CatalogService.ImportFeed(ctx, app.Store, *importKey)
		if err != nil {
			log.Fatalf("import %s: %v", *importKey, err)
		}
		printJSON(os.Stdout, res)
	}

	if *publishKey != "" {
		if cfg.CatalogQueueURL == "" {
			log.Fatal("CATALOG_QUEUE_URL is required for -publish")
		}
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.CatalogQueueURL)
		if err != nil {
			log.Fatalf("sqs client: %v", err)
		}
		sum, err := publishFeed(ctx, app.Store, client, *publishKey, time.Now)
		if err != nil {
			log.Fatalf("publish %s: %v", *publishKey, err)
		}
		printJSON(os.Stdout, sum)
	}

	if *exportKey != "" {
		n, err := app.CatalogService.ExportSnapshot(ctx, app.Store, *exportKey)
		if err != nil {
			log.Fatalf("export %s: %v", *exportKey, err)
		}
		fmt.Fprintf(os.Stdout, "exported %d opportunities to %s\n", n, *exportKey)
	}
}

// publishFeed enqueues every well-formed feed element for the worker. Elements
// that do not decode are skipped and reported; validation is left to the
// consumer.
func publishFeed(ctx context.Context, store object.ObjectStore, client queue.Client, key string, now func() time.Time) (publishSummary, error) {
	sum := publishSummary{Key: key}
	for item, err := range catalog.ReadFeed(ctx, store, key) {
		if err != nil {
			return sum, err
		}
		if item.Err != nil {
			sum.Skipped = append(sum.Skipped, catalog.Rejection{
				ID:      fmt.Sprintf("#%d", item.Index),
				Message: "malformed element: " + item.Err.Error(),
			})
			continue
		}
		msg, err := queue.NewMessage(queue.TypeCatalogUpsert, uuid.NewString(), item.Input, now())
		if err != nil {
			return sum, err
		}
		if err := client.Send(ctx, msg); err != nil {
			return sum, fmt.Errorf("send %s: %w", item.Input.ID, err)
		}
		sum.Published++
	}
	telemetry.Info("catalog.feed_published", map[string]any{
		"key":       key,
		"published": sum.Published,
		"skipped":   len(sum.Skipped),
	})
	return sum, nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("encode output: %v", err)
	}
}
