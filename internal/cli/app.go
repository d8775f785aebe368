// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared startup for commands that touch sessions.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tublox/tublox-tui/internal/config"
	"github.com/tublox/tublox-tui/internal/gemini"
	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/session"
	"github.com/tublox/tublox-tui/internal/storage"
)

// App bundles what a command needs: configuration, logging, the session
// store and the session manager. The Gemini client is created separately
// by Connect so that offline commands never need an API key.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.SessionStore
	Manager *session.Manager

	// LoadStatus records how the stored sessions were restored.
	LoadStatus storage.LoadStatus

	// Client and Streamer are set by Connect. Streamer is the interface
	// the session manager streams through; tests may set it directly.
	Client   *gemini.Client
	Streamer session.Streamer

	logCloser io.Closer
}

// LoadConfig reads the config file named by args (or the default one) and
// applies command-line overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Model != "" {
		cfg.Gemini.Model = args.Model
	}
	if args.Storage != "" {
		cfg.Storage.Backend = args.Storage
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// Bootstrap loads configuration, opens the log file and the session store,
// and restores the saved sessions. A corrupt store is logged and replaced
// with a fresh session rather than failing.
func Bootstrap(args Args) (*App, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(logging.Options{
		Path:   cfg.LogPath(),
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	backend, err := storage.Open(cfg.Storage.Backend, cfg.StorageDir())
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	store := storage.NewSessionStore(backend, logger)

	res := store.Load()
	if res.Status == storage.LoadFallback {
		logger.Warn("sessions_reset", "backend", cfg.Storage.Backend, "err", res.Err)
	}
	logger.Debug("sessions_loaded", "status", res.Status, "count", len(res.Sessions))

	mgr := session.NewManager(res.Sessions, session.Options{
		Persister: store,
		Logger:    logger,
	})

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Manager:    mgr,
		LoadStatus: res.Status,
		logCloser:  closer,
	}, nil
}

// Connect creates the Gemini client. It fails with gemini.ErrNotConfigured
// when no API key is set.
func (a *App) Connect(ctx context.Context) error {
	client, err := gemini.New(ctx, gemini.Options{
		APIKey:            a.Config.Gemini.APIKey,
		Model:             a.Config.Gemini.Model,
		BaseURL:           a.Config.Gemini.BaseURL,
		Temperature:       a.Config.Gemini.Temperature,
		DisableSearch:     a.Config.Gemini.DisableSearch,
		RequestsPerMinute: a.Config.Gemini.RequestsPerMinute,
		Logger:            a.Logger,
	})
	if err != nil {
		a.Logger.Warn("client_unavailable", "err", err)
		return err
	}
	a.Client = client
	a.Streamer = client
	return nil
}

// Watch keeps the manager in sync with writes from other tublox processes
// until ctx is cancelled. It is a no-op when disabled in config or when the
// backend cannot watch.
func (a *App) Watch(ctx context.Context) {
	if a.Config.Storage.NoWatch {
		return
	}
	err := a.Store.Watch(ctx, func(sessions []*model.Session) {
		a.Manager.Replace(sessions)
	})
	switch {
	case errors.Is(err, storage.ErrWatchUnsupported):
		a.Logger.Debug("sessions_watch_unsupported", "backend", a.Config.Storage.Backend)
	case err != nil:
		a.Logger.Warn("sessions_watch_failed", "err", err)
	}
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
