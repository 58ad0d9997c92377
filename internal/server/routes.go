package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Token-gated read.
	mux.HandleFunc("GET /secure_get/{hash}", s.handleSecureGet)

	// Credential-gated.
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /info/{hash}", s.handleInfo)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /download_db", s.handleDownloadDB)
	mux.HandleFunc("POST /admin/cleanup", s.handleAdminCleanup)

	var h http.Handler = s.withRequestLogging(mux)
	if s.opts.RequestTimeout > 0 {
		h = middleware.Timeout(s.opts.RequestTimeout)(h)
	}
	h = middleware.Recoverer(h)
	h = middleware.RequestID(h)
	if s.opts.TrustProxyHeaders {
		h = middleware.RealIP(h)
	}
	if len(s.opts.AllowedOrigins) > 0 {
		h = cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Confirm"},
			ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
			MaxAge:         300,
		})(h)
	}
	return h
}
