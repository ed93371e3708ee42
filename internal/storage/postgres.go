package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atxevents/atx-events/internal/event"
)

// Postgres persists events in a single table. The unique index on
// (title, start_datetime) enforces the dedup key at the storage layer as a
// backstop against two sources ingesting the same event concurrently.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the events table and its dedup-key index.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id             BIGSERIAL PRIMARY KEY,
			title          TEXT NOT NULL,
			start_datetime TIMESTAMPTZ NOT NULL,
			venue          TEXT NOT NULL,
			category       TEXT,
			event_link     TEXT,
			first_seen     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS events_title_start_idx
			ON events (title, start_datetime)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Exists reports whether an event with the given dedup key is stored.
func (p *Postgres) Exists(ctx context.Context, title string, start time.Time) (bool, error) {
	var one int
	err := p.pool.QueryRow(ctx,
		`SELECT 1 FROM events WHERE title = $1 AND start_datetime = $2`,
		title, start,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying events: %w", err)
	}
	return true, nil
}

// Insert stores one event verbatim. A unique violation surfaces as an
// error; the ingestion engine's lookup makes that the rare path.
func (p *Postgres) Insert(ctx context.Context, evt event.Event) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO events (title, start_datetime, venue, category, event_link)
		 VALUES ($1, $2, $3, $4, $5)`,
		evt.Title, evt.StartDateTime, evt.Venue, nullable(evt.Category), nullable(evt.EventLink),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
