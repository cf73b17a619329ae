// Package app wires configuration, storage and the HTTP server into a
// running mission control instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/openclaw/mission-control/classify"
	"github.com/openclaw/mission-control/config"
	"github.com/openclaw/mission-control/external"
	"github.com/openclaw/mission-control/ingest"
	"github.com/openclaw/mission-control/internal/version"
	"github.com/openclaw/mission-control/server"
	"github.com/openclaw/mission-control/server/api"
	"github.com/openclaw/mission-control/store"
)

const shutdownTimeout = 10 * time.Second

// NewLogger returns a text logger at the named level. Unknown levels mean
// info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Build opens the store and returns a server with every route attached.
// The caller owns the returned store.
func Build(cfg *config.Config, logger *slog.Logger) (*server.Server, *store.Store, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	srv := server.New(*cfg, version.Version, logger)

	rules := make([]classify.Rule, 0, len(cfg.Classifier.Projects))
	for _, r := range cfg.Classifier.Projects {
		rules = append(rules, classify.Rule{Keyword: r.Keyword, ProjectID: r.ProjectID})
	}

	ext := cfg.External
	runner := external.ExecRunner{Timeout: ext.Timeout}
	srv.SetHandlers(&api.Handlers{
		Store:          st,
		Ingest:         ingest.New(st, classify.New(rules), srv.Hub(), logger),
		WebhookSecret:  cfg.Webhook.Secret,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		External: api.External{
			Calendar: &external.Calendar{
				Runner:   runner,
				Bin:      ext.CalendarBin,
				Accounts: ext.CalendarAccounts,
				Env:      ext.CalendarEnv,
				Logger:   logger,
			},
			Cron: &external.Cron{Runner: runner, Bin: ext.CronBin, Logger: logger},
			Finance: &external.Finance{
				Sheets:     &external.Sheets{Runner: runner, Python: ext.PythonBin, Script: ext.PortfolioScript},
				Portfolios: ext.Portfolios,
			},
			Health:            &external.Health{Path: ext.HealthSnapshot, Logger: logger},
			Docs:              &external.Docs{AllowedDirs: ext.DocsAllowedDirs},
			PortfolioSnapshot: ext.PortfolioSnapshot,
			ThemeSnapshot:     ext.ThemeSnapshot,
		},
	})

	if dir := cfg.Server.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("static dir unavailable, UI disabled", slog.String("dir", dir), slog.Any("err", err))
		} else {
			srv.SetStaticFS(os.DirFS(dir))
		}
	}
	return srv, st, nil
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	srv, st, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("starting mission control",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("db", cfg.Database.Path),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
