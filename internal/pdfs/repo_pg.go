package pdfs

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, file_name, size_bytes, storage_key, extraction_state, extracted_text, failure_reason, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO pdfs (id, user_id, file_name, size_bytes, storage_key, extraction_state, extracted_text, failure_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.SizeBytes,
		doc.StorageKey,
		doc.ExtractionState,
		nullIfEmpty(doc.ExtractedText),
		nullIfEmpty(doc.FailureReason),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + selectColumns + `
FROM pdfs
WHERE id = $1
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// ListByUser lists a user's documents newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	const query = `
SELECT ` + selectColumns + `
FROM pdfs
WHERE user_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// ResetPending moves a document back to pending, clearing any stale result.
func (r *PGRepo) ResetPending(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE pdfs
SET extraction_state = $2, extracted_text = NULL, failure_reason = NULL, updated_at = $3
WHERE id = $1`
	return r.exec(ctx, query, id, StatePending, at)
}

// SetCompleted records a successful extraction.
func (r *PGRepo) SetCompleted(ctx context.Context, id, text string, at time.Time) error {
	const query = `
UPDATE pdfs
SET extraction_state = $2, extracted_text = $3, failure_reason = NULL, updated_at = $4
WHERE id = $1`
	return r.exec(ctx, query, id, StateCompleted, text, at)
}

// SetFailed records a failed extraction attempt.
func (r *PGRepo) SetFailed(ctx context.Context, id, reason string, at time.Time) error {
	const query = `
UPDATE pdfs
SET extraction_state = $2, extracted_text = NULL, failure_reason = $3, updated_at = $4
WHERE id = $1`
	return r.exec(ctx, query, id, StateFailed, nullIfEmpty(reason), at)
}

// Delete physically removes a document.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM pdfs WHERE id = $1`, id)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var text sql.NullString
	var reason sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.SizeBytes,
		&doc.StorageKey,
		&doc.ExtractionState,
		&text,
		&reason,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if text.Valid {
		doc.ExtractedText = text.String
	}
	if reason.Valid {
		doc.FailureReason = reason.String
	}
	return doc, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
