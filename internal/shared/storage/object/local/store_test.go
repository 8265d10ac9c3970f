package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	payload := []byte("%PDF-1.4\nsome pdf bytes")

	key, size, _, err := store.Save(context.Background(), "user-1", "report.pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key == "" {
		t.Fatalf("expected storage key")
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("stored bytes differ from payload")
	}

	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(context.Background(), key); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist after delete, got %v", err)
	}

	// Deleting again is not an error.
	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestSaveKeysDoNotCollide(t *testing.T) {
	store := New(t.TempDir())

	key1, _, _, err := store.Save(context.Background(), "user-1", "a.pdf", bytes.NewReader([]byte("one")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	key2, _, _, err := store.Save(context.Background(), "user-1", "a.pdf", bytes.NewReader([]byte("two")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key1 == key2 {
		t.Fatalf("expected distinct keys for same file name")
	}
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	store := New(t.TempDir())

	if _, err := store.Open(context.Background(), "../outside"); err == nil {
		t.Fatalf("expected error for traversal key")
	}
	if _, err := store.Open(context.Background(), "/etc/passwd"); err == nil {
		t.Fatalf("expected error for absolute key")
	}
}
