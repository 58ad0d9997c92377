package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"imgproxy/internal/models"
)

const imageColumns = "hash, storage_path, original_name, media_type, width, height, file_size, created_at, updated_at, access_count"

// Put inserts rec if no row with the same hash exists. When one does, the
// surviving row is returned unchanged and created is false. The insert and
// the read of the canonical row share one transaction, so concurrent first
// uploads of identical bytes resolve to a single row.
func (s *Store) Put(ctx context.Context, rec models.BlobRecord) (_ models.BlobRecord, created bool, err error) {
	var zero models.BlobRecord
	if err := validateRecord(&rec); err != nil {
		return zero, false, err
	}

	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.AccessCount = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created, err = insertIfAbsentTx(ctx, tx, rec)
	if err != nil {
		return zero, false, err
	}

	stored, err := scanImage(tx.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE hash = ?`, rec.Hash))
	if err != nil {
		return zero, false, err
	}
	if stored == nil {
		return zero, false, fmt.Errorf("image not found after insert")
	}

	if err := tx.Commit(); err != nil {
		return zero, false, err
	}
	return *stored, created, nil
}

// ReplaceExpired atomically drops the row for rec.Hash when it is older than
// retention and inserts rec in its place. A row that is still live is
// returned unchanged with created false.
func (s *Store) ReplaceExpired(ctx context.Context, rec models.BlobRecord, retention time.Duration) (_ models.BlobRecord, created bool, err error) {
	var zero models.BlobRecord
	if err := validateRecord(&rec); err != nil {
		return zero, false, err
	}

	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.AccessCount = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM images WHERE hash = ? AND ? - created_at > ?",
		rec.Hash, now.Unix(), int64(retention/time.Second),
	); err != nil {
		return zero, false, err
	}

	created, err = insertIfAbsentTx(ctx, tx, rec)
	if err != nil {
		return zero, false, err
	}

	stored, err := scanImage(tx.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE hash = ?`, rec.Hash))
	if err != nil {
		return zero, false, err
	}
	if stored == nil {
		return zero, false, fmt.Errorf("image not found after insert")
	}

	if err := tx.Commit(); err != nil {
		return zero, false, err
	}
	return *stored, created, nil
}

// Get returns the record for hash, or nil when absent.
func (s *Store) Get(ctx context.Context, hash string) (*models.BlobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE hash = ?`, normalizeHash(hash))
	return scanImage(row)
}

// RecordAccess atomically increments access_count and refreshes updated_at.
// It returns ErrNotFound when no row matches.
func (s *Store) RecordAccess(ctx context.Context, hash string) (models.BlobRecord, error) {
	var zero models.BlobRecord
	hash = normalizeHash(hash)

	row := s.db.QueryRowContext(ctx, `
		UPDATE images
		SET access_count = access_count + 1, updated_at = ?
		WHERE hash = ?
		RETURNING `+imageColumns,
		s.now().Unix(), hash,
	)
	rec, err := scanImage(row)
	if err != nil {
		return zero, err
	}
	if rec == nil {
		return zero, ErrNotFound
	}
	return *rec, nil
}

// ListExpired returns every record where now - created_at > retention, oldest first.
func (s *Store) ListExpired(ctx context.Context, retention time.Duration, now time.Time) ([]models.BlobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE ? - created_at > ? ORDER BY created_at ASC, hash ASC`,
		now.Unix(), int64(retention/time.Second),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.BlobRecord{}
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteMany removes the metadata rows for hashes in one transaction and
// returns how many rows were deleted. Blob bytes are the caller's concern.
func (s *Store) DeleteMany(ctx context.Context, hashes []string) (_ int, err error) {
	if len(hashes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM images WHERE hash = ?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	deleted := 0
	for _, hash := range hashes {
		res, err := stmt.ExecContext(ctx, normalizeHash(hash))
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

func insertIfAbsentTx(ctx context.Context, tx *sql.Tx, rec models.BlobRecord) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO images (`+imageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		rec.Hash,
		rec.StoragePath,
		rec.OriginalName,
		rec.MediaType,
		rec.Width,
		rec.Height,
		rec.FileSize,
		rec.CreatedAt.Unix(),
		rec.UpdatedAt.Unix(),
		rec.AccessCount,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func validateRecord(rec *models.BlobRecord) error {
	hash, err := models.NormalizeHash(rec.Hash)
	if err != nil {
		return err
	}
	rec.Hash = hash
	rec.StoragePath = strings.TrimSpace(rec.StoragePath)
	if rec.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if rec.FileSize < 0 {
		return fmt.Errorf("file_size must be >= 0")
	}
	if rec.Width < 0 || rec.Height < 0 {
		return fmt.Errorf("dimensions must be >= 0")
	}
	return nil
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func scanImage(scanner interface {
	Scan(dest ...any) error
}) (*models.BlobRecord, error) {
	rec := models.BlobRecord{}
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&rec.Hash,
		&rec.StoragePath,
		&rec.OriginalName,
		&rec.MediaType,
		&rec.Width,
		&rec.Height,
		&rec.FileSize,
		&createdAt,
		&updatedAt,
		&rec.AccessCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &rec, nil
}
