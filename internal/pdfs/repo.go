package pdfs

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrForbidden          = errors.New("document owned by another user")
	ErrInvalidUpload      = errors.New("invalid upload")
	ErrTooLarge           = errors.New("upload exceeds size limit")
	ErrExtractionInFlight = errors.New("extraction already in progress")
	ErrExtractionFailed   = errors.New("extraction failed")
)

// Repo defines persistence operations for documents. Each method is a single
// per-record write; overlapping attempts are serialized above this layer.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	ResetPending(ctx context.Context, id string, at time.Time) error
	SetCompleted(ctx context.Context, id, text string, at time.Time) error
	SetFailed(ctx context.Context, id, reason string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
