package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	handler "github.com/vibecheck/api/internal/adapters/handler/http"
	"github.com/vibecheck/api/internal/adapters/repository/postgres"
	"github.com/vibecheck/api/internal/adapters/repository/sqlite"
	"github.com/vibecheck/api/internal/config"
	"github.com/vibecheck/api/internal/core/ports"
	"github.com/vibecheck/api/internal/core/services"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var (
		repo       ports.VoteRepository
		changeFeed ports.ChangeFeed
		closeStore func() error
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}

		pgFeed, err := postgres.NewFeed(cfg.DatabaseURL, log)
		if err != nil {
			log.Error("failed to start change feed", "error", err)
			os.Exit(1)
		}

		repo = postgres.NewVoteRepository(db)
		changeFeed = pgFeed
		closeStore = func() error {
			pgFeed.Close()
			return db.Close()
		}
		log.Info("using postgres store")
	} else {
		store, err := sqlite.Open(cfg.SQLitePath, log)
		if err != nil {
			log.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}

		repo = store
		changeFeed = store
		closeStore = store.Close
		log.Info("using embedded sqlite store", "path", cfg.SQLitePath)
	}
	defer closeStore()

	voteService := services.NewVoteService(repo)
	liveService := services.NewLiveService(repo, changeFeed, log)

	voteHandler := handler.NewVoteHandler(voteService)
	liveHandler := handler.NewLiveHandler(liveService, log)
	router := handler.NewHandler(voteHandler, liveHandler, cfg.AllowedOrigins)

	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
