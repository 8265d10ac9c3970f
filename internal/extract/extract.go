package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when a payload does not carry the PDF magic bytes.
var ErrNotPDF = errors.New("not a pdf payload")

var pdfMagic = []byte("%PDF-")

// Extractor turns a stored PDF binary into plain text. Implementations must
// be safe for concurrent use across documents.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PDFExtractor extracts text using github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// NewPDFExtractor constructs a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract pulls the plain text out of an in-memory PDF payload.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !IsPDF(data) {
		return "", ErrNotPDF
	}

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// IsPDF reports whether the payload starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

var _ Extractor = (*PDFExtractor)(nil)
