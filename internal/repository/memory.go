package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRequests is an in-process RequestStore for tests and the dry-run
// server mode.
type MemoryRequests struct {
	mu       sync.Mutex
	byNumber map[string]Request
	now      func() time.Time
}

// NewMemoryRequests creates an empty store.
func NewMemoryRequests() *MemoryRequests {
	return &MemoryRequests{byNumber: map[string]Request{}, now: time.Now}
}

// Create inserts req.
func (m *MemoryRequests) Create(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byNumber[req.RequestNumber]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateRequestNumber, req.RequestNumber)
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = m.now().UTC()
	stored := *req
	stored.Answers = slices.Clone(req.Answers)
	m.byNumber[req.RequestNumber] = stored
	return nil
}

// GetByNumber returns a copy of the stored request.
func (m *MemoryRequests) GetByNumber(_ context.Context, requestNumber string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.byNumber[requestNumber]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestNumber)
	}
	req.Answers = slices.Clone(req.Answers)
	return &req, nil
}

// SetArchiveKey records the archive location.
func (m *MemoryRequests) SetArchiveKey(_ context.Context, id uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for number, req := range m.byNumber {
		if req.ID == id {
			req.ArchiveKey = key
			m.byNumber[number] = req
			return nil
		}
	}
	return fmt.Errorf("%w: request %s", ErrNotFound, id)
}

// Len reports how many requests are stored.
func (m *MemoryRequests) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byNumber)
}

// MemoryOutbox is an in-process OutboxStore.
type MemoryOutbox struct {
	mu     sync.Mutex
	emails []OutboxEmail
	now    func() time.Time
}

// NewMemoryOutbox creates an empty outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{now: time.Now}
}

// Enqueue appends a pending email.
func (m *MemoryOutbox) Enqueue(_ context.Context, email *OutboxEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if email.ID == uuid.Nil {
		email.ID = uuid.New()
	}
	if email.Status == "" {
		email.Status = EmailPending
	}
	email.CreatedAt = m.now().UTC()
	m.emails = append(m.emails, *email)
	return nil
}

// Pending returns up to limit pending emails in insertion order.
func (m *MemoryOutbox) Pending(_ context.Context, limit int) ([]OutboxEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []OutboxEmail
	for _, e := range m.emails {
		if e.Status != EmailPending {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkStatus updates an email status.
func (m *MemoryOutbox) MarkStatus(_ context.Context, id uuid.UUID, status EmailStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.emails {
		if m.emails[i].ID == id {
			m.emails[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: email %s", ErrNotFound, id)
}
