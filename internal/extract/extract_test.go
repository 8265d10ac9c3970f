package extract

import (
	"context"
	"errors"
	"testing"
)

func TestIsPDF(t *testing.T) {
	if !IsPDF([]byte("%PDF-1.7\nrest")) {
		t.Fatalf("expected PDF magic to be recognized")
	}
	if IsPDF([]byte("plain text")) {
		t.Fatalf("expected non-PDF payload to be rejected")
	}
	if IsPDF(nil) {
		t.Fatalf("expected empty payload to be rejected")
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	ex := NewPDFExtractor()
	if _, err := ex.Extract(context.Background(), []byte("not a pdf")); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestExtractFailsOnTruncatedPDF(t *testing.T) {
	ex := NewPDFExtractor()
	// Correct magic bytes but no cross-reference table.
	if _, err := ex.Extract(context.Background(), []byte("%PDF-1.4\ngarbage")); err == nil {
		t.Fatalf("expected error for truncated pdf")
	}
}

func TestExtractHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := NewPDFExtractor()
	if _, err := ex.Extract(ctx, []byte("%PDF-1.4\n")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
