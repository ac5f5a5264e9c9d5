/**
 * @description
 * This is the main entry point for the tutoring-marketplace backend. Its
 * responsibility is to initialize all necessary components and start the
 * HTTP server.
 *
 * Key features:
 * - Loads application configuration from environment variables.
 * - Establishes and manages a connection pool to the PostgreSQL database.
 * - Initializes the Open Banking client for the configured provider.
 * - Wires up the core application logic with its dependencies.
 * - Starts the consent-expiry scheduler and implements graceful shutdown.
 *
 * @dependencies
 * - The service's internal packages for config, app logic, storage, and the
 *   Open Banking client.
 * - pgxpool for database connection, godotenv for local config, rabbitmq
 *   for messaging, and go-redis for rate limiting.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/vicky55567123/tutorhub-sub000/internal/api"
	"github.com/vicky55567123/tutorhub-sub000/internal/app"
	"github.com/vicky55567123/tutorhub-sub000/internal/config"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
	"github.com/vicky55567123/tutorhub-sub000/internal/openbanking"
	"github.com/vicky55567123/tutorhub-sub000/internal/store"
	"github.com/vicky55567123/tutorhub-sub000/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load application configuration.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	// Establish database connection pool.
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database URL: %v\n", err)
	}

	// Configure connection pool for high-traffic scenarios
	dbConfig.MaxConns = 100
	dbConfig.MinConns = 20
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer dbpool.Close()
	log.Println("Database connection established")

	// Set up repositories.
	userRepo := store.NewPostgresUserRepository(dbpool)
	verificationRepo := store.NewPostgresVerificationRepository(dbpool)
	consentRepo := store.NewPostgresConsentRepository(dbpool)

	// Set up the event producer; fall back to a no-op publisher if the
	// broker is unreachable so validation keeps working.
	var producer rabbitmq.Publisher
	producer, err = rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("Failed to connect to RabbitMQ, events will be dropped: %v", err)
		producer = &rabbitmq.EventProducerFallback{}
	}
	defer producer.Close()

	// Set up the Open Banking client. In simulated mode the service can
	// run without vendor credentials.
	mode := domain.VerificationMode(cfg.VerificationMode)
	var obClient app.OpenBankingClient
	if cfg.OpenBankingAPIKey != "" || mode == domain.VerificationModeLive {
		client, err := openbanking.NewService(cfg.OpenBankingProvider, openbanking.Credentials{
			APIKey:       cfg.OpenBankingAPIKey,
			ClientID:     cfg.OpenBankingClientID,
			ClientSecret: cfg.OpenBankingClientSecret,
			RedirectURI:  cfg.OpenBankingRedirectURI,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Open Banking client: %v", err)
		}
		obClient = client
		log.Printf("Open Banking client initialized for provider '%s'", cfg.OpenBankingProvider)
	} else {
		log.Println("Running in simulated verification mode without an Open Banking client")
	}

	// Set up the Redis-backed rate limiter when a Redis URL is configured.
	var rateLimiter *app.RedisValidationRateLimiter
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Unable to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		rateLimiter = app.NewRedisValidationRateLimiter(redisClient, "")
		log.Println("Redis rate limiter enabled")
	}

	// Setup services.
	validationService := app.NewValidationService(verificationRepo, obClient, producer, mode)
	paymentService := app.NewPaymentService(obClient, consentRepo, producer)

	// Start the consent-expiry scheduler.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	jobs := app.NewJobs(consentRepo, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()
	defer scheduler.Stop()

	// Setup and start HTTP server.
	router := api.NewRouter(cfg, api.RouterDeps{
		Users:             userRepo,
		ValidationService: validationService,
		PaymentService:    paymentService,
		RateLimiter:       rateLimiter,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	log.Println("Tutoring marketplace backend is running.")

	// Wait for termination signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Create a context with a timeout for shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the HTTP server.
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
