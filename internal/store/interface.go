package store

import (
	"context"
	"time"

	"imgproxy/internal/models"
)

// ImageStore is the metadata surface used by the upload/read orchestration.
type ImageStore interface {
	Put(ctx context.Context, rec models.BlobRecord) (models.BlobRecord, bool, error)
	ReplaceExpired(ctx context.Context, rec models.BlobRecord, retention time.Duration) (models.BlobRecord, bool, error)
	Get(ctx context.Context, hash string) (*models.BlobRecord, error)
	RecordAccess(ctx context.Context, hash string) (models.BlobRecord, error)
	Stats(ctx context.Context) (models.StoreStats, error)
	Snapshot(ctx context.Context, dst string) error
}

// SweepStore is the metadata surface used by the cleanup sweeper.
type SweepStore interface {
	Get(ctx context.Context, hash string) (*models.BlobRecord, error)
	ListExpired(ctx context.Context, retention time.Duration, now time.Time) ([]models.BlobRecord, error)
	DeleteMany(ctx context.Context, hashes []string) (int, error)
}

var (
	_ ImageStore = (*Store)(nil)
	_ SweepStore = (*Store)(nil)
)
