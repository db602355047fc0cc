package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables used by the service. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS requests (
		id UUID PRIMARY KEY,
		request_number VARCHAR(16) NOT NULL,
		branch_id VARCHAR(64) NOT NULL,
		case_type_label TEXT NOT NULL DEFAULT '',
		locale VARCHAR(8) NOT NULL,
		answers JSONB NOT NULL,
		archive_key TEXT,
		submitted_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS requests_request_number_key ON requests (request_number)`,
	`CREATE TABLE IF NOT EXISTS email_outbox (
		id UUID PRIMARY KEY,
		request_number VARCHAR(16) NOT NULL REFERENCES requests (request_number),
		locale VARCHAR(8) NOT NULL,
		recipient TEXT,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'sent', 'failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS email_outbox_pending_idx ON email_outbox (status, created_at)`,
}

// Migrate applies Schema inside a single transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range Schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("repository: migrate step %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: migrate commit: %w", err)
	}
	logger.Info("schema applied", "statements", len(Schema))
	return nil
}
