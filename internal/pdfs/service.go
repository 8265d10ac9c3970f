package pdfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nits830/pdf-mechanic/internal/extract"
	"github.com/nits830/pdf-mechanic/internal/llm"
	"github.com/nits830/pdf-mechanic/internal/shared/metrics"
	"github.com/nits830/pdf-mechanic/internal/shared/storage/object"
	"github.com/nits830/pdf-mechanic/internal/shared/telemetry"
)

const (
	defaultMaxUploadBytes    = 10 << 20 // 10 MiB
	defaultExtractionTimeout = 2 * time.Minute
	mimePDF                  = "application/pdf"
)

// Service orchestrates the document lifecycle: upload, extraction,
// summarization, status polling, re-extraction, deletion.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	Extractor  extract.Extractor
	Summarizer llm.Summarizer

	// MaxUploadBytes caps accepted payloads; zero means the 10 MiB default.
	MaxUploadBytes int64
	// ExtractionTimeout bounds each extraction attempt so pending always
	// converges to completed or failed.
	ExtractionTimeout time.Duration

	tracker *inflightTracker
	poll    *pollLimiter
}

// NewService constructs a Service.
func NewService(repo Repo, store object.ObjectStore, extractor extract.Extractor, summarizer llm.Summarizer) *Service {
	return &Service{
		Repo:       repo,
		Store:      store,
		Extractor:  extractor,
		Summarizer: summarizer,
		tracker:    newInflightTracker(),
		poll:       newPollLimiter(pollLimitWindow, nil),
	}
}

// Upload validates and persists a PDF, then fires extraction asynchronously.
// The returned document is still pending; callers poll for the result.
func (s *Service) Upload(ctx context.Context, userID, fileName, contentType string, data []byte) (Document, error) {
	doc, err := s.createDocument(ctx, userID, fileName, contentType, data, StatePending)
	if err != nil {
		return Document{}, err
	}

	// Claim before returning so an immediate re-extract request conflicts
	// instead of racing the initial attempt.
	s.tracker.Begin(doc.ID)
	go s.completeExtraction(backgroundWithRequestID(ctx), doc.ID)

	return doc, nil
}

// GetStatus returns the document with its current extraction state. Callers
// are expected to poll while the state is pending.
func (s *Service) GetStatus(ctx context.Context, documentID, requesterID string) (Document, error) {
	return s.getOwned(ctx, documentID, requesterID)
}

// AllowPoll throttles status polls per (user, document).
func (s *Service) AllowPoll(userID, documentID string) (bool, int) {
	return s.poll.Allow(userID, documentID), s.poll.RetryAfterSeconds()
}

// Reextract resets the document to pending synchronously and re-runs
// extraction against the stored binary in the background. While an attempt
// is outstanding, a second request fails with ErrExtractionInFlight.
func (s *Service) Reextract(ctx context.Context, documentID, requesterID string) (Document, error) {
	doc, err := s.getOwned(ctx, documentID, requesterID)
	if err != nil {
		return Document{}, err
	}

	if !s.tracker.Begin(doc.ID) {
		return Document{}, ErrExtractionInFlight
	}

	now := time.Now().UTC()
	if err := s.Repo.ResetPending(ctx, doc.ID, now); err != nil {
		s.tracker.End(doc.ID)
		return Document{}, err
	}

	telemetry.Info("pdf.state", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"user_id":          doc.UserID,
		"pdf_id":           doc.ID,
		"state":            StatePending,
		"state_transition": doc.ExtractionState + "->" + StatePending,
	})

	go s.completeExtraction(backgroundWithRequestID(ctx), doc.ID)

	doc.ExtractionState = StatePending
	doc.ExtractedText = ""
	doc.FailureReason = ""
	doc.UpdatedAt = now
	return doc, nil
}

// ExtractAndSummarize is the synchronous pipeline: validate, persist,
// extract, and optionally summarize, all before returning. The document is
// never visible in a pending state on this path.
func (s *Service) ExtractAndSummarize(ctx context.Context, userID, fileName, contentType string, data []byte, styleRaw string) (Document, string, error) {
	var style llm.Style
	wantSummary := strings.TrimSpace(styleRaw) != ""
	if wantSummary {
		parsed, err := llm.ParseStyle(styleRaw)
		if err != nil {
			return Document{}, "", err
		}
		style = parsed
	}

	doc, err := s.createDocument(ctx, userID, fileName, contentType, data, StatePending)
	if err != nil {
		return Document{}, "", err
	}

	text, err := s.runExtraction(ctx, data)
	now := time.Now().UTC()
	if err != nil {
		if repoErr := s.Repo.SetFailed(ctx, doc.ID, err.Error(), now); repoErr != nil {
			telemetry.Error("pdf.set_failed", map[string]any{"pdf_id": doc.ID, "error": repoErr.Error()})
		}
		return Document{}, "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := s.Repo.SetCompleted(ctx, doc.ID, text, now); err != nil {
		return Document{}, "", err
	}
	doc.ExtractionState = StateCompleted
	doc.ExtractedText = text
	doc.UpdatedAt = now

	if !wantSummary {
		return doc, "", nil
	}

	metrics.IncSummarizeRequest(string(style))
	summary, err := s.Summarizer.Summarize(ctx, text, style)
	if err != nil {
		return Document{}, "", fmt.Errorf("summarize: %w", err)
	}
	return doc, summary, nil
}

// SummarizeText is the stateless passthrough: no document is touched.
func (s *Service) SummarizeText(ctx context.Context, text, styleRaw string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidUpload)
	}
	style, err := llm.ParseStyle(styleRaw)
	if err != nil {
		return "", err
	}

	metrics.IncSummarizeRequest(string(style))
	return s.Summarizer.Summarize(ctx, text, style)
}

// List returns the caller's documents, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Document, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID)
}

// OpenBinary returns the stored PDF bytes for streaming to the owner.
func (s *Service) OpenBinary(ctx context.Context, documentID, requesterID string) (io.ReadCloser, Document, error) {
	doc, err := s.getOwned(ctx, documentID, requesterID)
	if err != nil {
		return nil, Document{}, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, Document{}, fmt.Errorf("open binary id=%s: %w", doc.ID, err)
	}
	return body, doc, nil
}

// Delete physically removes the document and its stored binary. Repeating
// the call for an already-deleted id fails with ErrNotFound.
func (s *Service) Delete(ctx context.Context, documentID, requesterID string) error {
	doc, err := s.getOwned(ctx, documentID, requesterID)
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		telemetry.Error("pdf.delete_object", map[string]any{"pdf_id": doc.ID, "error": err.Error()})
	}
	return nil
}

func (s *Service) createDocument(ctx context.Context, userID, fileName, contentType string, data []byte, state string) (Document, error) {
	if userID == "" {
		return Document{}, errors.New("userID is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidUpload)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	if int64(len(data)) > s.maxUploadBytes() {
		return Document{}, fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.maxUploadBytes())
	}
	// Octet-stream means the client didn't sniff; the magic bytes below decide.
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if ct != "" && ct != mimePDF && ct != "application/octet-stream" {
		return Document{}, fmt.Errorf("%w: only PDF files are allowed", ErrInvalidUpload)
	}
	if !extract.IsPDF(data) {
		return Document{}, fmt.Errorf("%w: only PDF files are allowed", ErrInvalidUpload)
	}

	storageKey, size, _, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store binary: %w", err)
	}

	now := time.Now().UTC()
	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        fileName,
		SizeBytes:       size,
		StorageKey:      storageKey,
		ExtractionState: state,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Error("pdf.cleanup_object", map[string]any{"storage_key": storageKey, "error": delErr.Error()})
		}
		return Document{}, err
	}
	return doc, nil
}

// completeExtraction runs one extraction attempt for a pending document.
// The tracker claim for the document id must already be held.
func (s *Service) completeExtraction(ctx context.Context, documentID string) {
	defer s.tracker.End(documentID)
	defer func() {
		if r := recover(); r != nil {
			s.failExtraction(ctx, documentID, fmt.Errorf("panic: %v", r))
		}
	}()

	startedAt := time.Now().UTC()
	metrics.IncExtractionStarted()

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		// Deleted between claim and attempt; nothing to update.
		if !errors.Is(err, ErrNotFound) {
			s.failExtraction(ctx, documentID, fmt.Errorf("document lookup: %w", err))
		}
		return
	}

	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		s.failExtraction(ctx, documentID, fmt.Errorf("open binary: %w", err))
		return
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		s.failExtraction(ctx, documentID, fmt.Errorf("read binary: %w", err))
		return
	}

	text, err := s.runExtraction(ctx, data)
	if err != nil {
		s.failExtraction(ctx, documentID, err)
		return
	}

	now := time.Now().UTC()
	if err := s.Repo.SetCompleted(ctx, documentID, text, now); err != nil {
		telemetry.Error("pdf.set_completed", map[string]any{"pdf_id": documentID, "error": err.Error()})
		return
	}

	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("pdf.state", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"user_id":          doc.UserID,
		"pdf_id":           documentID,
		"state":            StateCompleted,
		"state_transition": StatePending + "->" + StateCompleted,
		"duration_ms":      time.Since(startedAt).Milliseconds(),
	})
}

// runExtraction invokes the extractor under the configured deadline.
func (s *Service) runExtraction(ctx context.Context, data []byte) (string, error) {
	timeout := s.ExtractionTimeout
	if timeout <= 0 {
		timeout = defaultExtractionTimeout
	}
	extractCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Extractor.Extract(extractCtx, data)
}

func (s *Service) failExtraction(ctx context.Context, documentID string, cause error) {
	now := time.Now().UTC()
	if err := s.Repo.SetFailed(ctx, documentID, cause.Error(), now); err != nil && !errors.Is(err, ErrNotFound) {
		telemetry.Error("pdf.set_failed", map[string]any{"pdf_id": documentID, "error": err.Error()})
	}
	metrics.IncExtractionFailed()
	telemetry.Error("pdf.state", map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"pdf_id":           documentID,
		"state":            StateFailed,
		"state_transition": StatePending + "->" + StateFailed,
		"error":            cause.Error(),
	})
}

func (s *Service) getOwned(ctx context.Context, documentID, requesterID string) (Document, error) {
	if documentID == "" || requesterID == "" {
		return Document{}, errors.New("documentID and requesterID are required")
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != requesterID {
		return Document{}, ErrForbidden
	}
	return doc, nil
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}
