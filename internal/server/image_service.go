package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"imgproxy/internal/blobstore"
	"imgproxy/internal/clock"
	"imgproxy/internal/keylock"
	"imgproxy/internal/models"
	"imgproxy/internal/store"
	"imgproxy/internal/token"
	"imgproxy/internal/validate"
)

// ImageService sequences uploads and reads across the validator, blob store,
// metadata store and token codec. Every step touching one hash runs under
// that hash's lock, shared with the cleanup sweeper.
type ImageService struct {
	store     store.ImageStore
	blobs     blobstore.BlobStore
	validator *validate.Validator
	tokens    *token.Codec
	locks     *keylock.Striped
	clock     clock.Clock
	retention time.Duration
	domain    string
	logger    *slog.Logger
}

// ImageView is an image record plus a freshly issued signed URL.
type ImageView struct {
	Record   models.BlobRecord
	URL      string
	ExpireAt time.Time
	Status   models.UploadStatus
}

// ImageContent is an open blob ready to stream. Callers must Close it.
type ImageContent struct {
	Record models.BlobRecord
	Body   io.ReadCloser
}

func NewImageService(st store.ImageStore, blobs blobstore.BlobStore, validator *validate.Validator, tokens *token.Codec, locks *keylock.Striped, clk clock.Clock, retention time.Duration, domain string, logger *slog.Logger) *ImageService {
	if locks == nil {
		locks = keylock.New(0)
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		store:     st,
		blobs:     blobs,
		validator: validator,
		tokens:    tokens,
		locks:     locks,
		clock:     clk,
		retention: retention,
		domain:    strings.TrimRight(domain, "/"),
		logger:    logger.With("component", "images"),
	}
}

// MaxUploadBytes is the largest accepted file.
func (s *ImageService) MaxUploadBytes() int64 {
	return s.validator.MaxBytes()
}

// Retention is how long a record lives after creation.
func (s *ImageService) Retention() time.Duration {
	return s.retention
}

// Upload validates and stores data, deduplicating by content hash.
// Re-uploading identical bytes returns the existing record untouched unless
// it is already past retention, in which case it is replaced by a fresh one.
func (s *ImageService) Upload(ctx context.Context, identity, name string, data []byte) (ImageView, error) {
	result := s.validator.Validate(data, name)
	if !result.OK() {
		return ImageView{}, badRequestCode(fmt.Errorf("file rejected: %s", result.Error()), ErrCodeFileRejected)
	}

	hash := blobstore.Digest(data)
	unlock := s.locks.Lock(hash)
	defer unlock()

	put, err := s.blobs.Put(ctx, bytes.NewReader(data))
	if err != nil {
		return ImageView{}, blobFailure(fmt.Errorf("store blob: %w", err))
	}
	if put.SHA256 != hash {
		return ImageView{}, internalError(fmt.Errorf("blob digest mismatch: %s != %s", put.SHA256, hash))
	}

	rec := models.BlobRecord{
		Hash:         hash,
		StoragePath:  put.BlobKey,
		OriginalName: name,
		MediaType:    result.MediaType,
		Width:        result.Width,
		Height:       result.Height,
		FileSize:     put.SizeBytes,
	}

	stored, created, err := s.store.Put(ctx, rec)
	if err != nil {
		s.discardBlob(put)
		return ImageView{}, storeFailure(err)
	}
	if !created && stored.Expired(s.retention, s.clock.Now()) {
		stored, created, err = s.store.ReplaceExpired(ctx, rec, s.retention)
		if err != nil {
			s.discardBlob(put)
			return ImageView{}, storeFailure(err)
		}
		s.logger.Info("replaced expired record", "hash", hash)
	}

	status := models.UploadStatusExisting
	if created {
		status = models.UploadStatusUploaded
		s.logger.Info("image uploaded", "hash", hash, "identity", identity, "bytes", stored.FileSize, "media_type", stored.MediaType)
	} else {
		s.logger.Debug("image already present", "hash", hash, "identity", identity)
	}

	return s.view(identity, stored, status)
}

// discardBlob removes a blob this upload created when no record ended up
// pointing at it. Caller holds the hash lock.
func (s *ImageService) discardBlob(put blobstore.BlobPutResult) {
	if !put.Created {
		return
	}
	if err := s.blobs.Delete(context.Background(), put.BlobKey); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Warn("discard orphaned blob", "hash", put.SHA256, "blob_key", put.BlobKey, "error", err)
	}
}

// Info returns a fresh signed URL for an existing, unexpired record.
func (s *ImageService) Info(ctx context.Context, identity, rawHash string) (ImageView, error) {
	hash, err := models.NormalizeHash(rawHash)
	if err != nil {
		return ImageView{}, badRequestCode(err, ErrCodeInvalidHash)
	}

	unlock := s.locks.RLock(hash)
	defer unlock()

	rec, err := s.store.Get(ctx, hash)
	if err != nil {
		return ImageView{}, storeFailure(err)
	}
	if rec == nil {
		return ImageView{}, notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
	}
	if rec.Expired(s.retention, s.clock.Now()) {
		return ImageView{}, expired(fmt.Errorf("image has expired"))
	}
	return s.view(identity, *rec, models.UploadStatusExisting)
}

// Open verifies a token for rawHash, counts the access and opens the blob.
// A read that loses a race with the sweeper reports not found.
func (s *ImageService) Open(ctx context.Context, rawHash, rawToken string) (ImageContent, error) {
	hash, err := models.NormalizeHash(rawHash)
	if err != nil {
		return ImageContent{}, forbiddenCode(fmt.Errorf("invalid token"), ErrCodeTokenInvalid)
	}
	if strings.TrimSpace(rawToken) == "" {
		return ImageContent{}, forbiddenCode(fmt.Errorf("token is required"), ErrCodeTokenInvalid)
	}

	claims, err := s.tokens.VerifyAt(rawToken, s.clock.Now())
	if err != nil {
		s.logger.Debug("token rejected", "hash", hash, "error", err)
		if errors.Is(err, token.ErrExpired) {
			return ImageContent{}, expired(fmt.Errorf("token has expired"))
		}
		return ImageContent{}, forbiddenCode(fmt.Errorf("invalid token"), ErrCodeTokenInvalid)
	}
	if claims.ResourceHash != hash {
		s.logger.Warn("token does not match image", "hash", hash, "token_hash", claims.ResourceHash, "identity", claims.Identity)
		return ImageContent{}, forbiddenCode(fmt.Errorf("token does not match image"), ErrCodeTokenMismatch)
	}

	unlock := s.locks.RLock(hash)
	defer unlock()

	rec, err := s.store.Get(ctx, hash)
	if err != nil {
		return ImageContent{}, storeFailure(err)
	}
	if rec == nil {
		return ImageContent{}, notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
	}

	body, err := s.blobs.Open(ctx, rec.StoragePath)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Error("blob missing for record", "hash", hash, "storage_path", rec.StoragePath)
			return ImageContent{}, notFoundCode(fmt.Errorf("image content not found"), ErrCodeBlobMissing)
		}
		return ImageContent{}, blobFailure(err)
	}

	updated, err := s.store.RecordAccess(ctx, hash)
	if err != nil {
		body.Close()
		if errors.Is(err, store.ErrNotFound) {
			return ImageContent{}, notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
		}
		return ImageContent{}, storeFailure(err)
	}

	return ImageContent{Record: updated, Body: body}, nil
}

// Stats reports metadata store statistics.
func (s *ImageService) Stats(ctx context.Context) (models.StoreStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.StoreStats{}, storeFailure(err)
	}
	return stats, nil
}

// Snapshot writes a consistent copy of the metadata database to dst.
func (s *ImageService) Snapshot(ctx context.Context, dst string) error {
	if err := s.store.Snapshot(ctx, dst); err != nil {
		return snapshotFailure(err)
	}
	return nil
}

func (s *ImageService) view(identity string, rec models.BlobRecord, status models.UploadStatus) (ImageView, error) {
	expireAt := rec.ExpiresAt(s.retention)
	tok, err := s.tokens.Issue(identity, rec.Hash, expireAt)
	if err != nil {
		return ImageView{}, internalError(fmt.Errorf("issue token: %w", err))
	}
	return ImageView{
		Record:   rec,
		URL:      s.domain + "/secure_get/" + rec.Hash + "?token=" + url.QueryEscape(tok),
		ExpireAt: expireAt,
		Status:   status,
	}, nil
}
