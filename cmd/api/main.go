// Package main is the entry point for the liturgy comparison API
// server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ericbreyer/liturgy/internal/api"
	"github.com/ericbreyer/liturgy/internal/compare"
	"github.com/ericbreyer/liturgy/internal/config"
	"github.com/ericbreyer/liturgy/internal/database"
	"github.com/ericbreyer/liturgy/internal/logger"
	"github.com/ericbreyer/liturgy/internal/remote"
	"github.com/ericbreyer/liturgy/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.Setup(cfg)

	log.Info("starting liturgy API",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("log_level", cfg.LogLevel),
	)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	var (
		catalog  compare.Catalog
		lookup   compare.DayLookup
		searcher compare.Searcher
		db       *database.DB
	)

	if cfg.RemoteBaseURL != "" {
		// Remote mode: a backend computes the calendars; we cache its
		// catalog and refresh it on a schedule.
		client := remote.NewClient(cfg.RemoteBaseURL, log)
		cached := remote.NewCachedCatalog(client, log)

		if err := cached.Refresh(context.Background()); err != nil {
			log.Warn("initial catalog fetch failed, will retry on schedule",
				slog.Any("error", err))
		}

		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.CatalogRefresh, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = cached.Refresh(ctx)
		}); err != nil {
			return fmt.Errorf("schedule catalog refresh %q: %w", cfg.CatalogRefresh, err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		catalog = cached
		lookup = client
		searcher = client

		log.Info("using remote backend",
			slog.String("base_url", cfg.RemoteBaseURL),
			slog.String("catalog_refresh", cfg.CatalogRefresh),
		)
	} else {
		// Local mode: calendars are served from imported SQLite data.
		var err error
		db, err = database.Open(database.DefaultConfig(cfg.DatabasePath), log)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		applied, err := db.Migrate(context.Background())
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		if applied > 0 {
			log.Info("applied migrations", slog.Int("count", applied))
		}

		catalog = db
		lookup = db
		searcher = search.NewService(db, cfg.SearchLimit, log)

		log.Info("using local database", slog.String("path", cfg.DatabasePath))
	}

	engine := compare.NewEngine(lookup, searcher, cfg.SearchThreshold, log)
	handlers := api.NewHandlers(catalog, lookup, searcher, engine, db, cfg, log)
	router := api.NewRouter(handlers, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
