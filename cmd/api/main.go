package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/unibook/internal/config"
	"github.com/joshua-takyi/unibook/internal/connect"
	"github.com/joshua-takyi/unibook/internal/container"
	"github.com/joshua-takyi/unibook/internal/mailer"
	"github.com/joshua-takyi/unibook/internal/mq"
	"github.com/joshua-takyi/unibook/internal/routes"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := connect.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting unibook API server", zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cld, err := connect.CloudinaryCredentials(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Cloudinary", zap.Error(err))
	}
	if cld == nil {
		logger.Warn("Cloudinary not configured, photo URLs are stored as given")
	}

	mongoClient, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	logger.Info("Connected to MongoDB successfully", zap.Bool("transactions", cfg.MongoDBTransactions))

	redisCache, err := connect.Redis(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache and rate limiting", zap.Error(err))
		redisCache = nil
	}

	amqpConn, err := connect.RabbitMQ(cfg)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, sending notifications inline", zap.Error(err))
		amqpConn = nil
	}

	appContainer, err := container.NewContainer(ctx, cfg, logger, cld, mongoClient, redisCache, amqpConn)
	if err != nil {
		logger.Fatal("Failed to build container", zap.Error(err))
	}

	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := appContainer.Repo.EnsureIndexes(idxCtx); err != nil {
		logger.Error("Failed to ensure indexes", zap.Error(err))
	}
	cancel()

	// the API process also drains the notification queue
	if amqpConn != nil {
		consumer := &mq.Consumer{
			URL:      cfg.RabbitMQURL,
			Prefetch: 10,
			Handle:   mailer.BookingCreatedHandler(appContainer.Mailer),
			Logger:   logger,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Notification consumer stopped", zap.Error(err))
			}
		}()
	}

	router := routes.SetupRoutes(appContainer)

	server := newHTTPServer(cfg.Port, router)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Server is shutting down...")
	case runErr = <-serverErr:
		logger.Error("Server failed", zap.Error(runErr))
		stop()
	}

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	appContainer.Close()
	if amqpConn != nil {
		_ = amqpConn.Close()
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", zap.Error(err))
	}

	logger.Info("Server exited")
	if runErr != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
