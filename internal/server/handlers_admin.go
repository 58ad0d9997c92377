package server

import (
	"fmt"
	"net/http"

	"imgproxy/internal/api"
)

func (s *Server) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireCredentials(w, r)
	if !ok {
		return
	}
	if !s.allowRequest(w, r) {
		return
	}

	var req api.CleanupRequest
	if !s.decodeOptionalJSON(w, r, &req) {
		return
	}
	if !req.DryRun && r.Header.Get("X-Confirm") != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("non-dry-run requires X-Confirm: true header"), ErrCodeMissingRequired))
		return
	}

	result, err := s.sweeper.SweepNow(r.Context(), s.images.Retention(), req.DryRun)
	s.metrics.ObserveSweep(result, err)
	if err != nil && result.Failed == 0 {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	if err != nil {
		s.log().Warn("admin cleanup finished with failures", "identity", identity, "failed", result.Failed, "error", err)
	} else {
		s.log().Info("admin cleanup", "identity", identity, "dry_run", result.DryRun, "deleted", result.Deleted)
	}

	hashes := result.Hashes
	if hashes == nil {
		hashes = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.CleanupResponse{
		Candidates:     result.Candidates,
		Deleted:        result.Deleted,
		MissingBlobs:   result.MissingBlobs,
		Failed:         result.Failed,
		ReclaimedBytes: result.ReclaimedBytes,
		DryRun:         result.DryRun,
		Hashes:         hashes,
	})
}
