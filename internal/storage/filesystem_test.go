package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/generated-images")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	url, err := store.Write(context.Background(), "task123.png", payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if url != "http://localhost:8080/generated-images/task123.png" {
		t.Fatalf("unexpected url: %s", url)
	}
	got, err := store.Read("task123.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("stored bytes differ from written bytes")
	}
}

func TestReadStripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write(context.Background(), "passwd", []byte("inside")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// The traversal attempt must resolve to the basename inside the root.
	got, err := store.Read("../../etc/passwd")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "inside" {
		t.Fatalf("Read resolved outside the store: %q", got)
	}
}

func TestReadMissingFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Read("nope.png"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read missing = %v, want os.ErrNotExist", err)
	}
}

func TestSanitizeKeyRejectsEscapes(t *testing.T) {
	for _, key := range []string{"", "..", "../x.png", "a/../../b.png"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Errorf("sanitizeKey(%q) accepted, want error", key)
		}
	}
	if cleaned, err := sanitizeKey("/sub/task.png"); err != nil || cleaned != "sub/task.png" {
		t.Errorf("sanitizeKey(/sub/task.png) = %q, %v", cleaned, err)
	}
}
