package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patitas/patitas-backend/internal/animals"
	"github.com/patitas/patitas-backend/internal/api"
	"github.com/patitas/patitas-backend/internal/chat"
	"github.com/patitas/patitas-backend/internal/config"
	"github.com/patitas/patitas-backend/internal/db"
	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/log"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/metrics"
	"github.com/patitas/patitas-backend/internal/moderation"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/stories"
	"github.com/patitas/patitas-backend/internal/store"
	"github.com/patitas/patitas-backend/internal/wizard"
	"github.com/patitas/patitas-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, metricsHandler, err := metrics.Setup("patitas-backend")
	if err != nil {
		logger.Fatalw("Metrics setup failed", "error", err)
	}

	database, err := db.NewDatabase(&db.Config{Type: "postgres", DSN: cfg.Database.PostgresDSN})
	if err != nil {
		logger.Fatalw("Database setup failed", "error", err)
	}
	if err := db.ConnectAndMigrate(ctx, database, db.AllSchemas()); err != nil {
		logger.Fatalw("Database migration failed", "error", err)
	}
	defer database.Disconnect(context.Background())

	if cfg.IsDev() {
		if err := db.SeedDevData(ctx, database); err != nil {
			logger.Warnw("Dev seed failed", "error", err)
		}
	}

	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, m)
	if err != nil {
		logger.Fatalw("Cache setup failed", "error", err)
	}
	defer cache.Close()

	var uploader media.Uploader
	if cfg.Media.AccessKey != "" {
		objectStore, err := media.NewObjectStore(ctx, media.Config{
			Endpoint:  cfg.Media.Endpoint,
			AccessKey: cfg.Media.AccessKey,
			SecretKey: cfg.Media.SecretKey,
			Bucket:    cfg.Media.Bucket,
			UseSSL:    cfg.Media.UseSSL,
			PublicURL: cfg.Media.PublicURL,
		}, logger)
		if err != nil {
			logger.Fatalw("Object store setup failed", "error", err)
		}
		uploader = objectStore
	} else {
		logger.Warn("No media credentials configured; storing uploads in memory")
		uploader = media.NewMemoryUploader()
	}

	sessions := session.NewManager(cfg.Auth.JWTSecret, database.Repository(entities.ProfileSchema), cache, logger)
	animalSvc := animals.NewService(database, cache, uploader, logger)
	chatSvc := chat.NewService(database, cache, logger)
	storySvc := stories.NewService(database, uploader, cache, logger)
	moderationSvc := moderation.NewService(database, animalSvc, storySvc, sessions, cache, logger)
	submitter := wizard.NewSubmitter(database, uploader, cache, m,
		cfg.Feed.PublishCooldown, cfg.Feed.MaxImagesPerRecord, logger)

	hub := ws.NewHub(logger, m)
	api.StartHub(ctx, hub, cache)

	server := api.NewServer(animalSvc, chatSvc, moderationSvc, storySvc, submitter,
		database.Repository(entities.AnimalSchema), cfg.Feed.PageSize, logger)

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Server:   server,
		Sessions: sessions,
		Cache:    cache,
		Database: database,
		Hub:      hub,
		Metrics:  m,
		MetricsH: metricsHandler,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE and websocket hold the connection open
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		logger.Infow("HTTP server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}
