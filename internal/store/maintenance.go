package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imgproxy/internal/models"
)

// Stats summarizes record counts, traffic and on-disk size.
func (s *Store) Stats(ctx context.Context) (models.StoreStats, error) {
	var stats models.StoreStats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(access_count), 0), COALESCE(SUM(file_size), 0)
		FROM images
	`).Scan(&stats.TotalRecords, &stats.TotalAccesses, &stats.TotalBytes)
	if err != nil {
		return stats, err
	}

	var name string
	var createdAt int64
	err = s.db.QueryRowContext(ctx,
		"SELECT original_name, created_at FROM images ORDER BY created_at DESC, hash ASC LIMIT 1",
	).Scan(&name, &createdAt)
	switch {
	case err == nil:
		stats.NewestRecord = &models.NewestRecord{Name: name, CreatedAt: time.Unix(createdAt, 0).UTC()}
	case !errors.Is(err, sql.ErrNoRows):
		return stats, err
	}

	version, err := currentVersion(s.db)
	if err != nil {
		return stats, err
	}
	stats.SchemaVersion = version

	size, err := s.fileSize()
	if err != nil {
		return stats, err
	}
	stats.DBFileSizeBytes = size

	return stats, nil
}

// Snapshot writes a consistent copy of the database to dst, which must not exist.
func (s *Store) Snapshot(ctx context.Context, dst string) error {
	if dst == "" {
		return fmt.Errorf("snapshot path is required")
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("snapshot path already exists: %s", dst)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst)
	return err
}

// fileSize sums the main database file and its WAL, ignoring missing files.
func (s *Store) fileSize() (int64, error) {
	var total int64
	for _, path := range []string{s.path, s.path + "-wal"} {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
