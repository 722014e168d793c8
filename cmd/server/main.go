package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/api"
	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/repository/memory"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store := buildStore(cfg)

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to redis")
	}

	uploadArchive := buildUploadArchive(cfg)

	services := &api.Services{
		InventoryService: service.NewInventoryService(store, forecastCache),
		ForecastService:  service.NewForecastService(store, forecastCache, cfg.Forecast),
		UploadArchive:    uploadArchive,
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// buildStore connects to postgres when DB_HOST is set, and falls back to the
// in-memory store for local development without a database.
func buildStore(cfg *config.Config) repository.Store {
	if cfg.Database.Host == "" {
		logger.Log.Warn().Msg("DB_HOST not set, using in-memory store")
		return memory.NewInventoryStore()
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	return postgres.NewInventoryStore(db)
}

func buildUploadArchive(cfg *config.Config) storage.ObjectStorage {
	if !cfg.Storage.Enabled {
		return storage.NewNoopStorage()
	}

	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to object storage")
	}
	return client
}
