package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"internship-matcher/internal/shared/storage/object"
	"internship-matcher/internal/shared/telemetry"
)

// FeedResult reports a feed import.
type FeedResult struct {
	Key string `json:"key"`
	BatchResult
}

// FeedItem is one element of a feed. Err is set when the element is not an
// opportunity object; the rest of the feed is still readable.
type FeedItem struct {
	Index int
	Input Input
	Err   error
}

// ReadFeed streams the elements of a JSON array stored under key. Structural
// failures (unreadable object, not an array, broken JSON) end the sequence
// with a non-nil error.
func ReadFeed(ctx context.Context, store object.ObjectStore, key string) iter.Seq2[FeedItem, error] {
	return func(yield func(FeedItem, error) bool) {
		rc, err := store.Open(ctx, key)
		if err != nil {
			yield(FeedItem{}, fmt.Errorf("open feed %s: %w", key, err))
			return
		}
		defer rc.Close()

		dec := json.NewDecoder(rc)
		tok, err := dec.Token()
		if err != nil {
			yield(FeedItem{}, fmt.Errorf("read feed %s: %w", key, err))
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			yield(FeedItem{}, fmt.Errorf("feed %s: expected a JSON array", key))
			return
		}

		for index := 0; dec.More(); index++ {
			if err := ctx.Err(); err != nil {
				yield(FeedItem{}, err)
				return
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				yield(FeedItem{}, fmt.Errorf("feed %s element %d: %w", key, index, err))
				return
			}
			item := FeedItem{Index: index}
			item.Err = json.Unmarshal(raw, &item.Input)
			if !yield(item, nil) {
				return
			}
		}
	}
}

// ImportFeed ingests every element of the feed under key. A malformed element
// is recorded as a rejection; a malformed array aborts.
func (s *Service) ImportFeed(ctx context.Context, store object.ObjectStore, key string) (FeedResult, error) {
	res := FeedResult{Key: key}
	for item, err := range ReadFeed(ctx, store, key) {
		if err != nil {
			return res, err
		}
		if item.Err != nil {
			res.Rejected = append(res.Rejected, Rejection{
				ID:      fmt.Sprintf("#%d", item.Index),
				Message: "malformed element: " + item.Err.Error(),
			})
			continue
		}
		batch, err := s.IngestBatch(ctx, []Input{item.Input})
		if err != nil {
			return res, err
		}
		res.Accepted += batch.Accepted
		res.Rejected = append(res.Rejected, batch.Rejected...)
	}

	telemetry.Info("catalog.feed_imported", map[string]any{
		"key":      key,
		"accepted": res.Accepted,
		"rejected": len(res.Rejected),
	})
	return res, nil
}

// ExportSnapshot writes every stored opportunity, ordered by id, as a JSON
// array that ImportFeed can read back.
func (s *Service) ExportSnapshot(ctx context.Context, store object.ObjectStore, key string) (int, error) {
	opps := slices.Collect(s.Index.Snapshot().All())
	if opps == nil {
		opps = []Opportunity{}
	}
	body, err := json.Marshal(opps)
	if err != nil {
		return 0, err
	}
	if _, err := store.Put(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return 0, fmt.Errorf("write snapshot %s: %w", key, err)
	}
	telemetry.Info("catalog.snapshot_exported", map[string]any{"key": key, "count": len(opps)})
	return len(opps), nil
}
