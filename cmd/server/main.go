package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caisseapp/backoffice/internal/api"
	"github.com/caisseapp/backoffice/internal/cache"
	"github.com/caisseapp/backoffice/internal/config"
	"github.com/caisseapp/backoffice/internal/repository"
	"github.com/caisseapp/backoffice/internal/service"
	"github.com/caisseapp/backoffice/internal/storage"
	"github.com/caisseapp/backoffice/internal/store/postgres"
	"github.com/caisseapp/backoffice/pkg/logger"
)

func main() {
	cfg := config.Load()

	if cfg.Server.Mode == "debug" {
		logger.SetLevel("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel("info")
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Log.Fatal().Err(err).Msg("failed to ensure database schema")
	}
	cancel()

	statsCache, err := cache.NewStatsCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("stats cache unavailable, continuing without it")
		statsCache = cache.NewNoopStatsCache()
	}

	salesRepo := repository.NewSaleRepository(db)
	productRepo := repository.NewProductRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	services := &api.Services{
		Sales:     service.NewSalesService(salesRepo, archiveRepo, statsCache, cfg.Archive),
		Products:  service.NewProductService(productRepo, salesRepo, alertRepo, statsCache),
		Dashboard: service.NewDashboardService(salesRepo, productRepo, statsCache),
		Alerts:    service.NewAlertService(alertRepo),
	}

	if cfg.Storage.Enabled {
		objects, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to initialize object storage")
		}
		services.Export = service.NewExportService(salesRepo, archiveRepo, objects)
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exiting")
}
