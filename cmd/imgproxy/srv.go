package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"imgproxy/internal/auth"
	"imgproxy/internal/cleanup"
	"imgproxy/internal/clock"
	"imgproxy/internal/config"
	"imgproxy/internal/ratelimit"
	"imgproxy/internal/server"
	"imgproxy/internal/token"
	"imgproxy/internal/validate"
)

func newSrvCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the imgproxy API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := state.cfg
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, clock.Real(), slog.Default())
		},
	}
}

// app is a fully wired server over the local stack.
type app struct {
	local   *localStack
	server  *server.Server
	metrics *server.Metrics
}

func buildApp(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*app, error) {
	local, err := openExclusive(cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	a, err := wireServer(cfg, local, clk, logger)
	if err != nil {
		local.Close()
		return nil, err
	}
	return a, nil
}

func wireServer(cfg *config.Config, local *localStack, clk clock.Clock, logger *slog.Logger) (*app, error) {
	validator, err := validate.New(validate.Options{
		MaxBytes:     cfg.MaxFileBytes(),
		AllowedTypes: cfg.Security.Upload.AllowedTypes,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := token.New([]byte(cfg.Security.SecretKey), token.WithClock(clk))
	if err != nil {
		return nil, err
	}

	limits := cfg.Security.RateLimit
	metrics := server.NewMetrics()
	images := server.NewImageService(local.store, local.blobs, validator, tokens, local.locks, clk,
		cfg.Retention(), cfg.Server.Domain, logger)

	srv, err := server.New(server.Options{
		Addr:               cfg.Server.ListenAddr,
		TrustProxyHeaders:  cfg.Security.TrustProxyHeaders,
		AllowedOrigins:     cfg.Security.AllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout(),
		MultipartMaxMemory: cfg.Security.Upload.MultipartMaxMemory,
		Version:            version,
	}, server.Deps{
		Images:  images,
		Sweeper: local.sweeper,
		Auth:    auth.New(cfg.Users),
		Limiter: ratelimit.NewSlidingWindow(limits.MaxRequests, cfg.RateWindow()),
		Lockout: ratelimit.NewLockout(limits.LoginMaxFailures,
			time.Duration(limits.LoginWindowSeconds)*time.Second,
			time.Duration(limits.LoginBlockSeconds)*time.Second),
		Metrics: metrics,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return &app{local: local, server: srv, metrics: metrics}, nil
}

func runServer(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) error {
	a, err := buildApp(cfg, clk, logger)
	if err != nil {
		return err
	}
	defer a.local.Close()

	var runner *cleanup.Runner
	if cfg.Cleanup.Enable {
		schedule, err := cleanupSchedule(cfg)
		if err != nil {
			return err
		}
		runner = &cleanup.Runner{
			Sweeper:    a.local.sweeper,
			Schedule:   schedule,
			Retention:  cfg.Retention(),
			RunAtStart: true,
			Clock:      clk,
			Logger:     logger,
			OnSweep:    a.metrics.ObserveSweep,
		}
	} else {
		logger.Info("scheduled cleanup disabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Serve(ctx) })
	if runner != nil {
		g.Go(func() error { return runner.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// cleanupSchedule prefers a fixed interval when one is configured and falls
// back to the daily cleanup_time.
func cleanupSchedule(cfg *config.Config) (cleanup.Schedule, error) {
	if cfg.Cleanup.IntervalMinutes > 0 {
		return cleanup.Every(time.Duration(cfg.Cleanup.IntervalMinutes) * time.Minute), nil
	}
	daily, err := cleanup.ParseDaily(cfg.Cleanup.Time, time.Local)
	if err != nil {
		return nil, err
	}
	return daily, nil
}
