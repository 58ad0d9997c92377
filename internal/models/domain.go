package models

import (
	"fmt"
	"strings"
)

// UploadStatus reports whether an upload stored new bytes or matched existing content.
type UploadStatus string

const (
	UploadStatusUploaded UploadStatus = "uploaded"
	UploadStatusExisting UploadStatus = "existing"
)

// HashLength is the length of a hex-encoded SHA-256 content hash.
const HashLength = 64

// Media types accepted by default.
const (
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeGIF  = "image/gif"
	MediaTypeWebP = "image/webp"
)

// DefaultAllowedMediaTypes lists the image formats accepted when none are configured.
func DefaultAllowedMediaTypes() []string {
	return []string{MediaTypeJPEG, MediaTypePNG, MediaTypeGIF, MediaTypeWebP}
}

// IsValidHash reports whether value is a lowercase hex SHA-256 digest.
func IsValidHash(value string) bool {
	if len(value) != HashLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NormalizeHash lowercases and validates a content hash.
func NormalizeHash(raw string) (string, error) {
	hash := strings.ToLower(strings.TrimSpace(raw))
	if !IsValidHash(hash) {
		return "", fmt.Errorf("invalid hash")
	}
	return hash, nil
}
