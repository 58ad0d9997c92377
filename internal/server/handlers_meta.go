package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"imgproxy/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Timestamp: s.clock.Now().Unix(),
		Version:   s.opts.Version,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireCredentials(w, r)
	if !ok {
		return
	}
	if !s.allowRequest(w, r) {
		return
	}

	stats, err := s.images.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log().Info("stats requested", "identity", identity)

	resp := api.StatsResponse{
		TotalImages:     stats.TotalRecords,
		TotalAccesses:   stats.TotalAccesses,
		TotalBytes:      stats.TotalBytes,
		DBFileSizeBytes: stats.DBFileSizeBytes,
		SchemaVersion:   stats.SchemaVersion,
		RetentionDays:   int(s.images.Retention().Hours() / 24),
	}
	if stats.NewestRecord != nil {
		resp.NewestRecord = &api.NewestRecord{
			Name:      stats.NewestRecord.Name,
			CreatedAt: stats.NewestRecord.CreatedAt.Unix(),
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleDownloadDB streams a VACUUM INTO snapshot so readers never see a
// half-written database. ?compress=zstd wraps the stream in zstd.
func (s *Server) handleDownloadDB(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireCredentials(w, r)
	if !ok {
		return
	}
	if !s.allowRequest(w, r) {
		return
	}

	compression := r.URL.Query().Get("compress")
	switch compression {
	case "", "none", "zstd":
	default:
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("unsupported compress value %q", compression), ErrCodeInvalidQuery))
		return
	}

	dir, err := os.MkdirTemp("", "imgproxy-snapshot-*")
	if err != nil {
		s.writeServiceError(w, r, snapshotFailure(err))
		return
	}
	defer os.RemoveAll(dir)

	snapshotPath := filepath.Join(dir, "images.db")
	if err := s.images.Snapshot(r.Context(), snapshotPath); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	f, err := os.Open(snapshotPath)
	if err != nil {
		s.writeServiceError(w, r, snapshotFailure(err))
		return
	}
	defer f.Close()

	s.log().Info("database download", "identity", identity, "compress", compression)

	if compression == "zstd" {
		w.Header().Set("Content-Type", "application/zstd")
		w.Header().Set("Content-Disposition", `attachment; filename="images.db.zst"`)
		w.WriteHeader(http.StatusOK)
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			s.log().Error("zstd encoder", "error", err)
			return
		}
		if _, err := io.Copy(enc, f); err != nil {
			enc.Close()
			s.log().Warn("stream database", "error", err)
			return
		}
		if err := enc.Close(); err != nil {
			s.log().Warn("finish zstd stream", "error", err)
		}
		return
	}

	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprint(info.Size()))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="images.db"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		s.log().Warn("stream database", "error", err)
	}
}
