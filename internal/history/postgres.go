package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements Store on PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE validation_runs (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    domain TEXT NOT NULL,
//	    scraper_type TEXT NOT NULL,
//	    url TEXT NOT NULL,
//	    verdict TEXT NOT NULL,
//	    duration_ms BIGINT NOT NULL,
//	    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db Querier
}

// NewPostgres wraps an existing pool or mock.
func NewPostgres(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool for dsn and pings it to verify the connection.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

// RecordRun inserts the run and returns the generated row ID.
func (s *PostgresStore) RecordRun(ctx context.Context, run Run) (string, error) {
	const query = `
		INSERT INTO validation_runs (domain, scraper_type, url, verdict, duration_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id string
	err := s.db.QueryRow(ctx, query,
		run.Domain,
		run.ScraperType,
		run.URL,
		run.Verdict,
		run.DurationMS,
		run.RecordedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert validation run: %w", err)
	}
	return id, nil
}

// RecentRuns returns the newest runs for a domain, most recent first.
func (s *PostgresStore) RecentRuns(ctx context.Context, domain string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, domain, scraper_type, url, verdict, duration_ms, recorded_at
		FROM validation_runs
		WHERE domain = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("query validation runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.Domain,
			&run.ScraperType,
			&run.URL,
			&run.Verdict,
			&run.DurationMS,
			&run.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan validation run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation runs: %w", err)
	}
	return runs, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}
