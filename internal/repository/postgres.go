package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Connect opens a pool and pings it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: ping: %w", err)
	}
	return pool, nil
}

// PostgresRequests implements RequestStore on Postgres.
type PostgresRequests struct {
	db *pgxpool.Pool
}

// NewPostgresRequests creates a request repository.
func NewPostgresRequests(db *pgxpool.Pool) *PostgresRequests {
	return &PostgresRequests{db: db}
}

// Create inserts a request.
func (r *PostgresRequests) Create(ctx context.Context, req *Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	query := `
		INSERT INTO requests (
			id, request_number, branch_id, case_type_label, locale, answers, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		req.ID,
		req.RequestNumber,
		req.BranchID,
		req.CaseTypeLabel,
		req.Locale,
		req.Answers,
		req.SubmittedAt,
	).Scan(&req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateRequestNumber, req.RequestNumber)
		}
		return fmt.Errorf("repository: create request %s: %w", req.RequestNumber, err)
	}
	return nil
}

// GetByNumber loads a request by its public number.
func (r *PostgresRequests) GetByNumber(ctx context.Context, requestNumber string) (*Request, error) {
	req := &Request{}
	query := `
		SELECT id, request_number, branch_id, case_type_label, locale, answers,
			COALESCE(archive_key, ''), submitted_at, created_at
		FROM requests
		WHERE request_number = $1`

	err := r.db.QueryRow(ctx, query, requestNumber).Scan(
		&req.ID,
		&req.RequestNumber,
		&req.BranchID,
		&req.CaseTypeLabel,
		&req.Locale,
		&req.Answers,
		&req.ArchiveKey,
		&req.SubmittedAt,
		&req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestNumber)
		}
		return nil, fmt.Errorf("repository: get request %s: %w", requestNumber, err)
	}
	return req, nil
}

// SetArchiveKey records where the compressed payload was written.
func (r *PostgresRequests) SetArchiveKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.db.Exec(ctx, `UPDATE requests SET archive_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("repository: set archive key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return nil
}

// PostgresOutbox implements OutboxStore on Postgres.
type PostgresOutbox struct {
	db *pgxpool.Pool
}

// NewPostgresOutbox creates an outbox repository.
func NewPostgresOutbox(db *pgxpool.Pool) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

// Enqueue inserts a pending email.
func (o *PostgresOutbox) Enqueue(ctx context.Context, email *OutboxEmail) error {
	if email.ID == uuid.Nil {
		email.ID = uuid.New()
	}
	if email.Status == "" {
		email.Status = EmailPending
	}
	query := `
		INSERT INTO email_outbox (id, request_number, locale, recipient, subject, body, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at`

	err := o.db.QueryRow(ctx, query,
		email.ID,
		email.RequestNumber,
		email.Locale,
		email.Recipient,
		email.Subject,
		email.Body,
		string(email.Status),
	).Scan(&email.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: enqueue email for %s: %w", email.RequestNumber, err)
	}
	return nil
}

// Pending returns the oldest undelivered emails.
func (o *PostgresOutbox) Pending(ctx context.Context, limit int) ([]OutboxEmail, error) {
	rows, err := o.db.Query(ctx, `
		SELECT id, request_number, locale, COALESCE(recipient, ''), subject, body, status, created_at
		FROM email_outbox
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`, string(EmailPending), limit)
	if err != nil {
		return nil, fmt.Errorf("repository: pending emails: %w", err)
	}
	defer rows.Close()

	var out []OutboxEmail
	for rows.Next() {
		var e OutboxEmail
		var status string
		if err := rows.Scan(&e.ID, &e.RequestNumber, &e.Locale, &e.Recipient, &e.Subject, &e.Body, &status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: scan email: %w", err)
		}
		e.Status = EmailStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkStatus updates delivery status.
func (o *PostgresOutbox) MarkStatus(ctx context.Context, id uuid.UUID, status EmailStatus) error {
	tag, err := o.db.Exec(ctx, `UPDATE email_outbox SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("repository: mark email %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: email %s", ErrNotFound, id)
	}
	return nil
}
