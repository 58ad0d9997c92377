package api

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// ImageResponse is returned by POST /upload and GET /info/{hash}.
type ImageResponse struct {
	URL         string `json:"url"`
	ExpireAt    int64  `json:"expire_at"`
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AccessCount int64  `json:"access_count"`
	Status      string `json:"status"`
	Hash        string `json:"hash"`
	MediaType   string `json:"media_type,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// NewestRecord names the most recently created record.
type NewestRecord struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	TotalImages     int64         `json:"total_images"`
	TotalAccesses   int64         `json:"total_accesses"`
	TotalBytes      int64         `json:"total_bytes"`
	DBFileSizeBytes int64         `json:"db_file_size"`
	SchemaVersion   int           `json:"schema_version"`
	RetentionDays   int           `json:"retention_days"`
	NewestRecord    *NewestRecord `json:"newest_record,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// CleanupRequest asks the server to sweep expired records now.
type CleanupRequest struct {
	DryRun bool `json:"dry_run"`
}

// CleanupResponse reports the outcome of an on-demand sweep.
type CleanupResponse struct {
	Candidates     int      `json:"candidates"`
	Deleted        int      `json:"deleted"`
	MissingBlobs   int      `json:"missing_blobs"`
	Failed         int      `json:"failed"`
	ReclaimedBytes int64    `json:"reclaimed_bytes"`
	DryRun         bool     `json:"dry_run"`
	Hashes         []string `json:"hashes"`
}
