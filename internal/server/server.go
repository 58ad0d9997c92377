package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"imgproxy/internal/auth"
	"imgproxy/internal/cleanup"
	"imgproxy/internal/clock"
	"imgproxy/internal/ratelimit"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second

	multipartOverhead = 1 << 20 // 1 MiB of form framing beyond the file itself
)

// Options are the non-dependency settings of a Server.
type Options struct {
	Addr               string
	TrustProxyHeaders  bool
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	MultipartMaxMemory int64
	Version            string
}

// Deps are the collaborators a Server needs. Images, Auth and Sweeper are
// required; a nil Limiter or Lockout disables that limit.
type Deps struct {
	Images  *ImageService
	Sweeper *cleanup.Sweeper
	Auth    *auth.Authenticator
	Limiter *ratelimit.SlidingWindow
	Lockout *ratelimit.Lockout
	Metrics *Metrics
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Server wraps HTTP handlers for the image API.
type Server struct {
	opts    Options
	images  *ImageService
	sweeper *cleanup.Sweeper
	auth    *auth.Authenticator
	limiter *ratelimit.SlidingWindow
	lockout *ratelimit.Lockout
	metrics *Metrics
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new server instance.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Images == nil {
		return nil, fmt.Errorf("image service is required")
	}
	if deps.Auth == nil || deps.Auth.Len() == 0 {
		return nil, fmt.Errorf("at least one user is required")
	}
	if deps.Sweeper == nil {
		return nil, fmt.Errorf("cleanup sweeper is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = 8 << 20
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	return &Server{
		opts:    opts,
		images:  deps.Images,
		sweeper: deps.Sweeper,
		auth:    deps.Auth,
		limiter: deps.Limiter,
		lockout: deps.Lockout,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		logger:  deps.Logger.With("component", "http"),
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Serve listens on Addr until ctx is cancelled, then drains in-flight
// requests. The limiter janitor runs for the lifetime of the listener.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.serveListener(ctx, ln, s.routes())
}

// serveListener serves handler on ln. Requests inherit ctx values but not its
// cancellation, so a shutdown lets in-flight requests finish.
func (s *Server) serveListener(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.runLimiterJanitor(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log().Info("starting server", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) runLimiterJanitor(ctx context.Context) {
	if s.limiter == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(time.Minute):
		}
		if removed := s.limiter.Cleanup(s.clock.Now()); removed > 0 {
			s.log().Debug("rate limiter cleanup", "removed_clients", removed, "tracked_clients", s.limiter.Len())
		}
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
