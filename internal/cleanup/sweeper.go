// Package cleanup removes image records whose retention window has elapsed.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"imgproxy/internal/blobstore"
	"imgproxy/internal/clock"
	"imgproxy/internal/keylock"
	"imgproxy/internal/store"
)

// Result summarises one sweep.
type Result struct {
	Candidates     int      `json:"candidates"`
	Deleted        int      `json:"deleted"`
	MissingBlobs   int      `json:"missing_blobs"`
	Failed         int      `json:"failed"`
	ReclaimedBytes int64    `json:"reclaimed_bytes"`
	DryRun         bool     `json:"dry_run"`
	Hashes         []string `json:"hashes,omitempty"`
}

// Sweeper deletes expired blobs and their metadata rows.
type Sweeper struct {
	store  store.SweepStore
	blobs  blobstore.BlobStore
	locks  *keylock.Striped
	logger *slog.Logger
	clock  clock.Clock
}

// NewSweeper wires a sweeper. locks must be the same instance the request
// path uses, otherwise a read can race a delete of the same hash.
func NewSweeper(st store.SweepStore, blobs blobstore.BlobStore, locks *keylock.Striped, logger *slog.Logger, clk clock.Clock) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = keylock.New(0)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Sweeper{
		store:  st,
		blobs:  blobs,
		locks:  locks,
		logger: logger.With("component", "cleanup"),
		clock:  clk,
	}
}

// SweepNow runs a sweep against the injected clock.
func (s *Sweeper) SweepNow(ctx context.Context, retention time.Duration, dryRun bool) (Result, error) {
	return s.Sweep(ctx, retention, s.clock.Now(), dryRun)
}

// Sweep removes every record with now - created_at > retention. Blob bytes go
// first; a row is only dropped once its blob is gone or already missing.
// Per-record failures are counted and joined into the returned error while
// the sweep continues.
func (s *Sweeper) Sweep(ctx context.Context, retention time.Duration, now time.Time, dryRun bool) (Result, error) {
	result := Result{DryRun: dryRun}
	if retention <= 0 {
		return result, fmt.Errorf("retention must be positive")
	}

	candidates, err := s.store.ListExpired(ctx, retention, now)
	if err != nil {
		return result, fmt.Errorf("list expired: %w", err)
	}
	result.Candidates = len(candidates)

	if dryRun {
		for _, rec := range candidates {
			result.ReclaimedBytes += rec.FileSize
			result.Hashes = append(result.Hashes, rec.Hash)
		}
		return result, nil
	}

	var errs []error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		deleted, missing, size, err := s.sweepOne(ctx, candidate.Hash, retention, now)
		if err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", candidate.Hash, err))
			s.logger.Error("cleanup delete failed", "hash", candidate.Hash, "error", err)
			continue
		}
		if missing {
			result.MissingBlobs++
		}
		if deleted {
			result.Deleted++
			result.ReclaimedBytes += size
			result.Hashes = append(result.Hashes, candidate.Hash)
		}
	}

	s.logger.Info("cleanup sweep finished",
		"candidates", result.Candidates,
		"deleted", result.Deleted,
		"missing_blobs", result.MissingBlobs,
		"failed", result.Failed,
		"reclaimed_bytes", result.ReclaimedBytes,
	)
	return result, errors.Join(errs...)
}

func (s *Sweeper) sweepOne(ctx context.Context, hash string, retention time.Duration, now time.Time) (deleted, missing bool, size int64, err error) {
	unlock := s.locks.Lock(hash)
	defer unlock()

	// The row may have been replaced by a fresh upload since it was listed.
	rec, err := s.store.Get(ctx, hash)
	if err != nil {
		return false, false, 0, fmt.Errorf("reload: %w", err)
	}
	if rec == nil || !rec.Expired(retention, now) {
		return false, false, 0, nil
	}

	if err := s.blobs.Delete(ctx, rec.StoragePath); err != nil {
		if !errors.Is(err, blobstore.ErrBlobNotFound) {
			return false, false, 0, fmt.Errorf("delete blob: %w", err)
		}
		missing = true
		s.logger.Warn("blob already missing", "hash", hash, "storage_path", rec.StoragePath)
	}

	if _, err := s.store.DeleteMany(ctx, []string{hash}); err != nil {
		return false, missing, 0, fmt.Errorf("delete record: %w", err)
	}
	return true, missing, rec.FileSize, nil
}
