// Package ingest decides, per normalized event, whether it is new to the
// store.
//
// The engine only knows the storage collaborator through its two-operation
// contract and issues no queries of its own beyond it. Re-running the same
// batch against unchanged storage is idempotent: every record is skipped.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/atxevents/atx-events/internal/event"
	"github.com/atxevents/atx-events/internal/logger"
)

// Store is the storage collaborator contract. Lookup-then-insert is not
// required to be atomic here; the storage layer's uniqueness constraint on
// the dedup key is the backstop against concurrent ingestion races.
type Store interface {
	Exists(ctx context.Context, title string, start time.Time) (bool, error)
	Insert(ctx context.Context, evt event.Event) error
}

// Result reports insert-or-skip counts for one batch.
type Result struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Ingest processes the batch in order. A storage error stops the batch and
// returns the counts accumulated so far alongside the error; dedup
// decisions themselves are order-insensitive.
func Ingest(ctx context.Context, events []event.Event, store Store) (Result, error) {
	var res Result
	for _, evt := range events {
		exists, err := store.Exists(ctx, evt.Title, evt.StartDateTime)
		if err != nil {
			return res, fmt.Errorf("checking for existing event %q: %w", evt.Title, err)
		}
		if exists {
			res.Skipped++
			logger.Debug("duplicate event skipped", logger.Fields{
				"title": evt.Title,
				"start": evt.StartDateTime,
			})
			continue
		}
		if err := store.Insert(ctx, evt); err != nil {
			return res, fmt.Errorf("inserting event %q: %w", evt.Title, err)
		}
		res.Added++
	}
	logger.IncrCounter("ingest.added", int64(res.Added))
	logger.IncrCounter("ingest.skipped", int64(res.Skipped))
	return res, nil
}
