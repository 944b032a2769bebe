/**
 * @description
 * This is the main entry point for the degicredit backend. It is responsible for
 * initializing all components of the service: configuration, database connection,
 * the payment processor client, the message broker, the repository, the core
 * application service, the expiry sweeper, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Optional .env loading for local development.
 * - github.com/redis/go-redis/v9: Distributed rate limiting backend.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/paymentclient, pkg/rabbitmq: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/api"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/app"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/config"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/store"
	"github.com/ChoudharyNavit22/degicredit-backend/pkg/paymentclient"
	"github.com/ChoudharyNavit22/degicredit-backend/pkg/rabbitmq"
)

func main() {
	// Load a local .env if present before viper reads the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("level=info component=bootstrap msg=\".env file loaded\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if cfg.InternalAPIKey == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting degicredit-backend\" port=%s", cfg.ServerPort)

	// Choose the repository implementation. Postgres in production; the
	// in-memory store keeps local development working without a database.
	var repository store.Repository
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"DATABASE_URL not set; using in-memory repository\"")
		repository = store.NewMemoryRepository()
	} else {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
		}
		poolConfig.MaxConns = 100
		poolConfig.MinConns = 20
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		// Disable prepared statement caching to prevent conflicts
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
		}
		defer dbpool.Close()
		log.Println("level=info component=bootstrap msg=\"database connected\"")
		repository = store.NewPostgresRepository(dbpool)
	}

	// Initialize the RabbitMQ producer to publish lifecycle events. This service
	// only publishes, so broker unavailability degrades to a no-op fallback.
	var producer rabbitmq.Publisher
	if eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = eventProducer
	}

	// Initialize the payment processor client. Missing configuration should not
	// prevent boot; card-source authorization is skipped when unset.
	var payments app.CardAuthorizer
	if strings.TrimSpace(cfg.PaymentAPIBaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"payment api not configured; card source authorization disabled\"")
	} else {
		payments = paymentclient.NewClient(cfg.PaymentAPIBaseURL, cfg.PaymentAPIKey)
	}

	service := app.NewService(
		repository,
		producer,
		payments,
		cfg.ProductTypes(),
		cfg.MaxPageLimit,
		cfg.EventExchange,
	)

	// Optional distributed rate limiting for the market query endpoints.
	if cfg.MarketRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; market rate limiting disabled\" env=REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; market rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; market rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
				service.SetMarketRateLimiter(
					app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
					cfg.MarketRateLimitPerMinute,
				)
			}
			cancelPing()
		}
	}

	// Start the periodic expiry sweep alongside the lazy expiry checks.
	sweeper := app.NewExpirySweeper(service, cfg.ExpirySweepSchedule)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"expiry sweeper start failed\" err=%v", err)
	}

	handlers := api.NewProductHandlers(service)
	router := api.Routes(handlers, cfg.JWTSecret, cfg.InternalAPIKey)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	<-sweeper.Stop().Done()

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
