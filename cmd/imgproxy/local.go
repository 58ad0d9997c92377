package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"imgproxy/internal/blobstore"
	"imgproxy/internal/cleanup"
	"imgproxy/internal/clock"
	"imgproxy/internal/config"
	"imgproxy/internal/keylock"
	"imgproxy/internal/lockfile"
	"imgproxy/internal/store"
)

// localStack is the on-disk state shared by the server and the offline
// maintenance commands.
type localStack struct {
	store   *store.Store
	blobs   *blobstore.LocalCAS
	locks   *keylock.Striped
	sweeper *cleanup.Sweeper
	dirLock *lockfile.Lock
}

// lockPath is the lock file guarding the data directory of cfg.
func lockPath(cfg *config.Config) string {
	return cfg.DBPath + ".lock"
}

// openExclusive opens the local stack for writing, refusing while another
// process (a running server or another cleanup) holds the data directory.
func openExclusive(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*localStack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := ensureDBDir(cfg.DBPath); err != nil {
		return nil, err
	}
	lock, err := lockfile.Acquire(lockPath(cfg))
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			return nil, fmt.Errorf("data directory is in use, stop the server or use \"imgproxy admin cleanup\": %w", err)
		}
		return nil, err
	}

	local, err := openLocal(cfg, clk, logger)
	if err != nil {
		lock.Release()
		return nil, err
	}
	local.dirLock = lock
	return local, nil
}

func ensureDBDir(dbPath string) error {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

func openLocal(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*localStack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := ensureDBDir(cfg.DBPath); err != nil {
		return nil, err
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath, store.WithClock(clk))
	if err != nil {
		return nil, err
	}

	bs, err := blobstore.NewLocalCAS(cfg.BlobDir)
	if err != nil {
		st.Close()
		return nil, err
	}

	locks := keylock.New(0)
	return &localStack{
		store:   st,
		blobs:   bs,
		locks:   locks,
		sweeper: cleanup.NewSweeper(st, bs, locks, logger, clk),
	}, nil
}

func (l *localStack) Close() error {
	err := l.store.Close()
	return errors.Join(err, l.dirLock.Release())
}
