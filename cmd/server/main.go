package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/hartwell/gridsync/internal/config"
	"github.com/hartwell/gridsync/internal/domain/collab"
	"github.com/hartwell/gridsync/internal/domain/presence"
	"github.com/hartwell/gridsync/internal/domain/registry"
	"github.com/hartwell/gridsync/internal/store"
	"github.com/hartwell/gridsync/internal/store/fsstore"
	"github.com/hartwell/gridsync/internal/store/sqlitestore"
	"github.com/hartwell/gridsync/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	snapshots, cleanup, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	tracker := presence.NewTracker(snapshots, presence.DefaultTTL)
	collabSvc := collab.NewService(snapshots, tracker, cfg.Collab.StrictVersioning, logger)
	registrySvc := registry.NewService(snapshots, tracker, logger)

	router := transport.NewRouter(collabSvc, registrySvc, snapshots, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(cfg.Server.CORSOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "store", cfg.Store.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func openStore(cfg config.Config, logger *slog.Logger) (store.SnapshotStore, func(), error) {
	switch cfg.Store.Backend {
	case "sqlite":
		db, err := sqlitestore.New(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlitestore.NewStore(db, logger), func() { db.Close() }, nil
	default:
		st, err := fsstore.New(cfg.Store.Root, cfg.Store.LockTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
