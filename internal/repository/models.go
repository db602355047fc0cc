// Package repository persists intake requests and the confirmation email
// outbox.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateRequestNumber is returned when the request number is
	// already taken. Callers regenerate the number and retry.
	ErrDuplicateRequestNumber = errors.New("repository: duplicate request number")
)

// Request is a persisted submission.
type Request struct {
	ID            uuid.UUID       `json:"id"`
	RequestNumber string          `json:"requestNumber"`
	BranchID      string          `json:"branchId"`
	CaseTypeLabel string          `json:"caseTypeLabel,omitempty"`
	Locale        string          `json:"locale"`
	Answers       json.RawMessage `json:"answers"`
	ArchiveKey    string          `json:"archiveKey,omitempty"`
	SubmittedAt   time.Time       `json:"submittedAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// EmailStatus tracks delivery of an outbox entry.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// OutboxEmail is a rendered confirmation waiting for delivery.
type OutboxEmail struct {
	ID            uuid.UUID   `json:"id"`
	RequestNumber string      `json:"requestNumber"`
	Locale        string      `json:"locale"`
	Recipient     string      `json:"recipient,omitempty"`
	Subject       string      `json:"subject"`
	Body          string      `json:"body"`
	Status        EmailStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// RequestStore persists requests.
type RequestStore interface {
	// Create inserts req and fills ID and CreatedAt. A taken request number
	// yields ErrDuplicateRequestNumber.
	Create(ctx context.Context, req *Request) error
	GetByNumber(ctx context.Context, requestNumber string) (*Request, error)
	SetArchiveKey(ctx context.Context, id uuid.UUID, key string) error
}

// OutboxStore queues confirmation emails.
type OutboxStore interface {
	Enqueue(ctx context.Context, email *OutboxEmail) error
	Pending(ctx context.Context, limit int) ([]OutboxEmail, error)
	MarkStatus(ctx context.Context, id uuid.UUID, status EmailStatus) error
}
