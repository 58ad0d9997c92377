package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalCASPutOpenDelete(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ctx := context.Background()

	first, err := cas.Put(ctx, bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if first.SHA256 != Digest([]byte("hello")) || first.BlobKey == "" || !first.Created {
		t.Fatalf("unexpected put result: %#v", first)
	}

	second, err := cas.Put(ctx, bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first.BlobKey != second.BlobKey || first.SHA256 != second.SHA256 {
		t.Fatalf("expected dedupe keys/digests to match: first=%#v second=%#v", first, second)
	}
	if second.Created {
		t.Fatal("expected second put of identical bytes to report Created=false")
	}

	rc, err := cas.Open(ctx, first.BlobKey)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected hello, got %q", string(data))
	}

	if err := cas.Delete(ctx, first.BlobKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cas.Delete(ctx, first.BlobKey); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound on repeat delete, got %v", err)
	}
	if _, err := cas.Open(ctx, first.BlobKey); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound on open after delete, got %v", err)
	}
}

func TestLocalCASLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	cas, err := NewLocalCAS(root)
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := cas.Put(context.Background(), bytes.NewBufferString("same")); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(root, "tmp"))
	if err != nil {
		t.Fatalf("read tmp: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty tmp dir, found %d entries", len(entries))
	}
}

func TestLocalCASRejectsEscapingKeys(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../outside", "sha256/../../x"} {
		if _, err := cas.Open(context.Background(), key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestLocalCASHonoursCanceledContext(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cas.Put(ctx, bytes.NewBufferString("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
