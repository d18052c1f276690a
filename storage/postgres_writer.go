package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rent-scraper/models"
)

// PostgresWriter keeps the latest price of every listing ever accepted, keyed by url.
type PostgresWriter struct {
	pool *pgxpool.Pool
	site string
}

func NewPostgresWriter(ctx context.Context, dsn, site string) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresWriter{pool: pool, site: site}, nil
}

func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	sql := `
	CREATE TABLE IF NOT EXISTS rental_listings (
		id BIGSERIAL PRIMARY KEY,
		site TEXT NOT NULL,
		listing_id TEXT,
		partition TEXT,
		price NUMERIC(12,2) NOT NULL,
		published_by_owner BOOLEAN NOT NULL,
		url TEXT NOT NULL UNIQUE,
		first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_rental_listings_price ON rental_listings(price);
	CREATE INDEX IF NOT EXISTS idx_rental_listings_site ON rental_listings(site);
	`

	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// WriteBatch upserts listings; a listing seen again gets its price and last_seen refreshed.
func (w *PostgresWriter) WriteBatch(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	upsertSQL := `
	INSERT INTO rental_listings (site, listing_id, partition, price, published_by_owner, url)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (url) DO UPDATE SET
		price = EXCLUDED.price,
		published_by_owner = EXCLUDED.published_by_owner,
		last_seen = NOW();
	`

	enqueued := 0
	for _, l := range listings {
		url := strings.TrimSpace(l.URL)
		if url == "" {
			continue
		}

		batch.Queue(
			upsertSQL,
			w.site,
			strings.TrimSpace(l.ID),
			l.Partition,
			l.Price,
			l.IsOwner,
			url,
		)
		enqueued++
	}

	if enqueued == 0 {
		return nil
	}

	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < enqueued; i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch upsert failed at row %d: %w", i, err)
		}
	}

	return nil
}
