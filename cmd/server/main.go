// Package main provides the API server entry point for the copy-trading backend.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/copiqat-backend/internal/adapter"
	"github.com/copiqat-backend/internal/api"
	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/job"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/mailer"
	"github.com/copiqat-backend/internal/service"
	"github.com/copiqat-backend/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	otpRepo := storage.NewOTPRepository(postgres)
	assetRepo := storage.NewAssetRepository(postgres)
	tradeRepo := storage.NewTradeRepository(postgres)
	vaultRepo := storage.NewVaultRepository(postgres)
	depositRepo := storage.NewDepositRepository(postgres)
	traderRepo := storage.NewTraderRepository(postgres)

	// Initialize cache, blacklist and outbound mail
	listingCache := storage.NewListingCache(redis, cfg.Cache.ListingTTL)
	blacklist := storage.NewTokenBlacklist(redis)
	mail := mailer.NewMailer(&cfg.SMTP, logger)
	defer mail.Close()

	// Initialize services
	logger.Info("Initializing services...")

	authService := service.NewAuthService(userRepo, otpRepo, mail, blacklist, &cfg.JWT, logger)
	tradeService := service.NewTradeService(tradeRepo, assetRepo, listingCache, logger)
	valuationService := service.NewValuationService(tradeRepo, assetRepo, listingCache, logger)
	accountService := service.NewAccountService(userRepo, vaultRepo, tradeRepo, &cfg.Referral, logger)
	depositService := service.NewDepositService(depositRepo, &cfg.Uploads, logger)
	traderService := service.NewTraderService(traderRepo)

	// Start the price refresh scheduler. The Redis lease keeps multiple
	// server instances from refreshing concurrently.
	quoteClient := adapter.NewQuoteClient(&cfg.Quote)
	refreshLease := storage.NewLease(redis, "jobs:price_refresh:lease", cfg.Cache.LeaseTTL)
	refreshJob := job.NewPriceRefreshJob(
		quoteClient,
		assetRepo,
		refreshLease,
		cfg.Quote.BatchSize,
		cfg.Quote.BatchDelay,
		logger,
	)
	scheduler := job.NewScheduler(refreshJob, cfg.Quote.RefreshSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start price refresh scheduler")
	}
	defer scheduler.Stop()

	logger.Info("Services initialized")

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AuthRPS:         cfg.RateLimit.AuthRPS,
		AuthBurst:       cfg.RateLimit.AuthBurst,
		MaxUploadBytes:  cfg.Uploads.MaxReceiptSize,
	}

	server := api.NewServer(
		serverConfig,
		authService,
		tradeService,
		valuationService,
		accountService,
		depositService,
		traderService,
		userRepo,
		logger,
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Server stopped")
}
