package pdfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nits830/pdf-mechanic/internal/shared/auth"
	"github.com/nits830/pdf-mechanic/internal/shared/server/middleware"
	"github.com/nits830/pdf-mechanic/internal/shared/storage/object/local"
)

func setupPDFRouter(t *testing.T, ex *stubExtractor) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryRepo(), local.New(t.TempDir()), ex, stubSummarizer{out: "a summary"})
	handler := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api")
	handler.RegisterRoutes(api.Group("/pdfs", middleware.Auth()))
	return r, svc
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Sub: userID, Email: userID + "@example.com"})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func multipartPDF(t *testing.T, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestUploadEndpointReturnsPending(t *testing.T) {
	r, svc := setupPDFRouter(t, &stubExtractor{text: "extracted"})

	body, contentType := multipartPDF(t, "report.pdf", pdfBytes())
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	resp := doRequest(r, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ID              string `json:"id"`
		FileName        string `json:"fileName"`
		ExtractionState string `json:"extractionState"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected id in response")
	}
	if created.ExtractionState != StatePending {
		t.Fatalf("expected pending, got %q", created.ExtractionState)
	}
	if created.FileName != "report.pdf" {
		t.Fatalf("expected file name echoed, got %q", created.FileName)
	}

	waitForState(t, svc, created.ID, StateCompleted)
}

func TestUploadEndpointRequiresAuth(t *testing.T) {
	r, _ := setupPDFRouter(t, &stubExtractor{text: "x"})

	body, contentType := multipartPDF(t, "report.pdf", pdfBytes())
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
	req.Header.Set("Content-Type", contentType)

	if resp := doRequest(r, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestUploadEndpointRejectsNonPDF(t *testing.T) {
	r, _ := setupPDFRouter(t, &stubExtractor{text: "x"})

	body, contentType := multipartPDF(t, "notes.txt", []byte("just text"))
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	resp := doRequest(r, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadEndpointRejectsOversize(t *testing.T) {
	r, svc := setupPDFRouter(t, &stubExtractor{text: "x"})
	svc.MaxUploadBytes = 32

	body, contentType := multipartPDF(t, "big.pdf", append(pdfBytes(), make([]byte, 128)...))
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	resp := doRequest(r, req)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestExtractEndpointWithSummary(t *testing.T) {
	r, _ := setupPDFRouter(t, &stubExtractor{text: "page one text"})

	body, contentType := multipartPDF(t, "report.pdf", pdfBytes())
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/extract?summary=concise", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	resp := doRequest(r, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got struct {
		Filename string `json:"filename"`
		FileSize int64  `json:"fileSize"`
		Text     string `json:"text"`
		Summary  string `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Text != "page one text" {
		t.Fatalf("expected extracted text, got %q", got.Text)
	}
	if got.Summary != "a summary" {
		t.Fatalf("expected summary, got %q", got.Summary)
	}
	if got.FileSize == 0 {
		t.Fatalf("expected file size in response")
	}
}

func TestExtractEndpointUnknownStyle(t *testing.T) {
	r, _ := setupPDFRouter(t, &stubExtractor{text: "x"})

	body, contentType := multipartPDF(t, "report.pdf", pdfBytes())
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/extract?summary=limerick", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	resp := doRequest(r, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	r, _ := setupPDFRouter(t, &stubExtractor{text: "x"})

	payload, _ := json.Marshal(map[string]string{"text": "long document text", "style": "bullet"})
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/summarize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	resp := doRequest(r, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Summary != "a summary" {
		t.Fatalf("expected summary, got %q", got.Summary)
	}
}

func TestSummarizeEndpointMissingText(t *testing.T) {
	r, _ := setupPDFRouter(t, &stubExtractor{text: "x"})

	payload, _ := json.Marshal(map[string]string{"style": "concise"})
	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/summarize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	if resp := doRequest(r, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTextEndpointStates(t *testing.T) {
	ex := &stubExtractor{text: "done", release: make(chan struct{})}
	r, svc := setupPDFRouter(t, ex)

	doc, err := svc.Upload(context.Background(), "user-1", "a.pdf", "application/pdf", pdfBytes())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/pdfs/"+doc.ID+"/text", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	resp := doRequest(r, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 while pending, got %d: %s", resp.Code, resp.Body.String())
	}

	// An immediate repeat poll is throttled.
	retry := doRequest(r, req.Clone(context.Background()))
	if retry.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on rapid poll, got %d", retry.Code)
	}
	if retry.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}

	close(ex.release)
	waitForState(t, svc, doc.ID, StateCompleted)

	// Fresh limiter key so the poll is not throttled.
	other := httptest.NewRequest(http.MethodGet, "/api/pdfs/"+doc.ID+"/text", nil)
	other.Header.Set("Authorization", bearerToken(t, "user-2-owner-check"))
	if resp := doRequest(r, other); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.Code)
	}

	// Fresh limiter so the final poll is not throttled by the earlier ones.
	svc.poll = newPollLimiter(0, nil)
	done := doRequest(r, req.Clone(context.Background()))
	if done.Code != http.StatusOK {
		t.Fatalf("expected 200 once completed, got %d: %s", done.Code, done.Body.String())
	}
	var final struct {
		Status string `json:"status"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(done.Body).Decode(&final); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if final.Status != StateCompleted || final.Text != "done" {
		t.Fatalf("expected completed text, got %+v", final)
	}
}

func TestTextEndpointFailedState(t *testing.T) {
	r, svc := setupPDFRouter(t, &stubExtractor{err: errors.New("bad xref")})

	doc, err := svc.Upload(context.Background(), "user-1", "a.pdf", "application/pdf", pdfBytes())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForState(t, svc, doc.ID, StateFailed)

	req := httptest.NewRequest(http.MethodGet, "/api/pdfs/"+doc.ID+"/text", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	resp := doRequest(r, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for failed extraction, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReextractEndpointConflict(t *testing.T) {
	r, svc := setupPDFRouter(t, &stubExtractor{text: "first"})

	doc, err := svc.Upload(context.Background(), "user-1", "a.pdf", "application/pdf", pdfBytes())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForState(t, svc, doc.ID, StateCompleted)

	blocked := &stubExtractor{text: "second", release: make(chan struct{})}
	svc.Extractor = blocked

	req := httptest.NewRequest(http.MethodPost, "/api/pdfs/"+doc.ID+"/extract", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	resp := doRequest(r, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	conflict := doRequest(r, req.Clone(context.Background()))
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 while in flight, got %d", conflict.Code)
	}

	close(blocked.release)
	waitForState(t, svc, doc.ID, StateCompleted)
}

func TestDownloadAndDeleteEndpoints(t *testing.T) {
	r, svc := setupPDFRouter(t, &stubExtractor{text: "x"})

	doc, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", pdfBytes())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForState(t, svc, doc.ID, StateCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/pdfs/"+doc.ID, nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	resp := doRequest(r, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, pdfBytes()) {
		t.Fatalf("downloaded bytes differ from upload")
	}

	other := httptest.NewRequest(http.MethodDelete, "/api/pdfs/"+doc.ID, nil)
	other.Header.Set("Authorization", bearerToken(t, "user-2"))
	if resp := doRequest(r, other); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner delete, got %d", resp.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/pdfs/"+doc.ID, nil)
	del.Header.Set("Authorization", bearerToken(t, "user-1"))
	if resp := doRequest(r, del); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.Code)
	}
	if resp := doRequest(r, del.Clone(context.Background())); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", resp.Code)
	}
}

func TestMyPDFsEndpoint(t *testing.T) {
	r, svc := setupPDFRouter(t, &stubExtractor{text: "x"})

	for i := 0; i < 2; i++ {
		doc, err := svc.Upload(context.Background(), "user-1", "a.pdf", "application/pdf", pdfBytes())
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		waitForState(t, svc, doc.ID, StateCompleted)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/pdfs/my-pdfs", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	resp := doRequest(r, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got struct {
		PDFs []struct {
			ID              string `json:"id"`
			ExtractionState string `json:"extractionState"`
		} `json:"pdfs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.PDFs) != 2 {
		t.Fatalf("expected 2 pdfs, got %d", len(got.PDFs))
	}
}
