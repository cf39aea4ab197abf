package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coupon-intake/internal/broker"
	"coupon-intake/internal/config"
	"coupon-intake/internal/database"
	"coupon-intake/internal/handler"
	"coupon-intake/internal/model"
	"coupon-intake/internal/oracle"
	"coupon-intake/internal/repository"
	"coupon-intake/internal/router"
	"coupon-intake/internal/service"
	"coupon-intake/internal/validation"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting coupon intake service")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool and schema
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Acquire the broker connection once; it is shared by the publisher
	// and consumer for the lifetime of the process.
	mq, err := broker.Connect(cfg.Broker.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer func() {
		if err := mq.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close broker connection")
		}
	}()

	for _, queue := range []string{model.QueueCouponToProcess, model.QueueBuyerDataProcessed} {
		if err := mq.EnsureQueue(queue); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	// Initialize repositories
	couponRepo := repository.NewCouponRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	// Initialize price oracle client and validator
	oracleClient := oracle.NewClient(cfg.Oracle.BaseURL, time.Duration(cfg.Oracle.Timeout)*time.Second, logger)
	couponValidator := validation.New(oracleClient, logger)

	// Initialize services
	couponService := service.NewCouponService(couponRepo, outboxRepo, couponValidator, logger)
	buyerHandler := service.NewBuyerAssociationHandler(couponRepo, logger)
	relay := service.NewOutboxRelay(
		outboxRepo,
		couponRepo,
		mq,
		time.Duration(cfg.Outbox.Interval)*time.Second,
		cfg.Outbox.BatchSize,
		logger,
	)

	// Start the buyer data consumer
	go func() {
		if err := mq.Consume(ctx, model.QueueBuyerDataProcessed, buyerHandler.Handle); err != nil {
			logger.Error().Err(err).Msg("buyer data consumer stopped")
		}
	}()

	// Start the outbox relay
	go relay.Run(ctx)

	// Initialize HTTP handlers and router
	couponHandler := handler.NewCouponHandler(couponService, logger)
	mux := router.New(couponHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Stop the consumer and relay loops
		cancel()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
