package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"imgproxy/internal/api"
)

const unnamedUpload = "unknown"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireCredentials(w, r)
	if !ok {
		return
	}
	if !s.allowRequest(w, r) {
		return
	}

	maxBytes := s.images.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.opts.MultipartMaxMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the validator to reject on size.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	name := strings.TrimSpace(header.Filename)
	if name == "" {
		name = unnamedUpload
	}

	view, err := s.images.Upload(r.Context(), identity, name, data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.observeUpload(string(view.Status))
	s.writeJSON(w, http.StatusOK, imageResponse(view, false))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireCredentials(w, r)
	if !ok {
		return
	}
	if !s.allowRequest(w, r) {
		return
	}

	view, err := s.images.Info(r.Context(), identity, r.PathValue("hash"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, imageResponse(view, true))
}

func (s *Server) handleSecureGet(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(w, r) {
		return
	}

	content, err := s.images.Open(r.Context(), r.PathValue("hash"), r.URL.Query().Get("token"))
	if err != nil {
		s.metrics.observeRead(strconv.Itoa(httpStatusFromError(err)))
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Body.Close()
	s.metrics.observeRead("ok")

	rec := content.Record
	header := w.Header()
	header.Set("Content-Type", rec.MediaType)
	header.Set("Content-Length", strconv.FormatInt(rec.FileSize, 10))
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Cache-Control", "private, no-store")
	header.Set("ETag", `"`+rec.Hash+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		s.log().Warn("stream image", "hash", rec.Hash, "error", err)
	}
}

func imageResponse(view ImageView, withSize bool) api.ImageResponse {
	rec := view.Record
	resp := api.ImageResponse{
		URL:         view.URL,
		ExpireAt:    view.ExpireAt.Unix(),
		Name:        rec.OriginalName,
		Width:       rec.Width,
		Height:      rec.Height,
		AccessCount: rec.AccessCount,
		Status:      string(view.Status),
		Hash:        rec.Hash,
		MediaType:   rec.MediaType,
	}
	if withSize {
		resp.FileSize = rec.FileSize
	}
	return resp
}
