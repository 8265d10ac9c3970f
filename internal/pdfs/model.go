package pdfs

import "time"

// Extraction states. Pending is transient and converges to completed or
// failed; both of those are terminal for a given attempt, but re-extraction
// re-enters pending.
const (
	StatePending   = "pending"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Document is an uploaded PDF owned by a user. The stored binary is
// immutable after creation; re-extraction reads it but never rewrites it.
type Document struct {
	ID              string
	UserID          string
	FileName        string
	SizeBytes       int64
	StorageKey      string
	ExtractionState string
	ExtractedText   string
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
