package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Quarterly Report (final).pdf", "Quarterly_Report_final_.pdf"},
		{"__weird__name__.docx", "weird_name_.docx"},
		{"résumé.pdf", "r_sum_.pdf"},
		{"plain.pdf", "plain.pdf"},
		{"///", "file"},
	}
	for _, c := range cases {
		if got := SanitizeFileName(c.in); got != c.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildKeyConvention(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	key := BuildKey("user-1", "my doc.pdf", at)
	if key != "user-1/1700000000000-my_doc.pdf" {
		t.Fatalf("unexpected key %q", key)
	}

	anon := BuildKey("", "my doc.pdf", at)
	if !strings.HasPrefix(anon, "anonymous/") {
		t.Fatalf("anonymous uploads must land in the anonymous namespace, got %q", anon)
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	ctx := context.Background()

	payload := []byte("raw file bytes")
	key := BuildKey("owner", "doc.pdf", time.Now())
	if err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()
	got, _ := io.ReadAll(reader)
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); err != ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound after delete, got %v", err)
	}
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	if err := store.Put(context.Background(), "../escape", bytes.NewReader(nil), 0, ""); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
