package models

import "time"

// BlobRecord is the metadata row for one stored image, keyed by content hash.
type BlobRecord struct {
	Hash         string    `json:"hash"`
	StoragePath  string    `json:"storage_path"`
	OriginalName string    `json:"original_name"`
	MediaType    string    `json:"media_type"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FileSize     int64     `json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	AccessCount  int64     `json:"access_count"`
}

// ExpiresAt is the instant after which the record is eligible for cleanup.
func (r BlobRecord) ExpiresAt(retention time.Duration) time.Time {
	return r.CreatedAt.Add(retention)
}

// Expired reports whether now lies strictly past the record's retention window.
func (r BlobRecord) Expired(retention time.Duration, now time.Time) bool {
	return now.Sub(r.CreatedAt) > retention
}

// NewestRecord identifies the most recently created record.
type NewestRecord struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreStats summarizes the metadata store.
type StoreStats struct {
	TotalRecords    int64         `json:"total_records"`
	TotalAccesses   int64         `json:"total_accesses"`
	TotalBytes      int64         `json:"total_bytes"`
	NewestRecord    *NewestRecord `json:"newest_record,omitempty"`
	DBFileSizeBytes int64         `json:"db_file_size_bytes"`
	SchemaVersion   int           `json:"schema_version"`
}
