package pdfs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUser returns a user's documents, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ResetPending moves a document back to pending, clearing any stale result.
func (r *MemoryRepo) ResetPending(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(doc *Document) {
		doc.ExtractionState = StatePending
		doc.ExtractedText = ""
		doc.FailureReason = ""
		doc.UpdatedAt = at
	})
}

// SetCompleted records a successful extraction.
func (r *MemoryRepo) SetCompleted(ctx context.Context, id, text string, at time.Time) error {
	return r.update(ctx, id, func(doc *Document) {
		doc.ExtractionState = StateCompleted
		doc.ExtractedText = text
		doc.FailureReason = ""
		doc.UpdatedAt = at
	})
}

// SetFailed records a failed extraction attempt.
func (r *MemoryRepo) SetFailed(ctx context.Context, id, reason string, at time.Time) error {
	return r.update(ctx, id, func(doc *Document) {
		doc.ExtractionState = StateFailed
		doc.ExtractedText = ""
		doc.FailureReason = reason
		doc.UpdatedAt = at
	})
}

// Delete physically removes a document.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	fn(&doc)
	r.data[id] = doc
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
