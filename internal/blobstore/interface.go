package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when a key has no backing bytes.
var ErrBlobNotFound = errors.New("blob not found")

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
	// Created is false when identical content was already present.
	Created bool
}

// BlobStore is the byte-storage abstraction behind the image metadata store.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
