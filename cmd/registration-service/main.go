package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ws-registration/internal/auth"
	"ws-registration/internal/checkout"
	"ws-registration/internal/checkout/checkout_api"
	"ws-registration/internal/config"
	"ws-registration/internal/database/migrations"
	"ws-registration/internal/discount"
	discount_db "ws-registration/internal/discount/db"
	"ws-registration/internal/discount/discount_api"
	discount_redis "ws-registration/internal/discount/redis"
	"ws-registration/internal/inventory"
	inventory_db "ws-registration/internal/inventory/db"
	"ws-registration/internal/inventory/inventory_api"
	"ws-registration/internal/kafka"
	"ws-registration/internal/logger"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	log.Info("DATABASE", "PostgreSQL connection successful")

	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	log.Info("REDIS", "Redis connection successful")

	// --- Kafka ---
	var producer *kafka.Producer
	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		topics := []string{cfg.Kafka.Topics.InventorySales, cfg.Kafka.Topics.InventoryAdmin, cfg.Kafka.Topics.DiscountActivity}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topics exist: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers,
			cfg.Kafka.Topics.InventorySales,
			cfg.Kafka.Topics.InventoryAdmin,
			cfg.Kafka.Topics.DiscountActivity)
		defer producer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled, audit events will not be streamed")
	}

	// --- Ledgers ---
	inventoryService := newInventoryService(bunDB, producer, log)
	discountService := newDiscountService(bunDB, producer, log)

	claims := discount_redis.NewRedis(redisClient)
	pricer := checkout.NewPricer(cfg.Pricing)
	checkoutService := checkout.NewService(inventoryService, discountService, claims, pricer, log)

	inventoryHandler := inventory_api.NewHandler(inventoryService)
	discountHandler := discount_api.NewHandler(discountService)
	checkoutHandler := checkout_api.NewHandler(checkoutService)

	// --- Router ---
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", checkoutHandler.Quote)
			r.Post("/finalize", checkoutHandler.Finalize)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.AdminOnly)

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", inventoryHandler.GetAllStatuses)
				r.Post("/", inventoryHandler.CreateCity)
				r.Get("/analytics", inventoryHandler.GetAnalytics)
				r.Get("/transactions", inventoryHandler.GetTransactions)
				r.Get("/expansions", inventoryHandler.GetExpansions)
				r.Post("/bulk-expand", inventoryHandler.BulkExpand)
				r.Post("/bulk-reset", inventoryHandler.BulkReset)
				r.Get("/{cityID}/check", inventoryHandler.CheckStatus)
				r.Post("/{cityID}/expand", inventoryHandler.Expand)
				r.Post("/{cityID}/reset", inventoryHandler.Reset)
			})

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/usage", discountHandler.GetUsageStats)
				r.Get("/usage/{email}", discountHandler.CheckUsage)
				r.Post("/usage/{email}/reset", discountHandler.ResetUsage)
			})
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Registration service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Registration service shutdown complete")
}

func newInventoryService(bunDB *bun.DB, producer *kafka.Producer, log *logger.Logger) *inventory.Service {
	var publisher inventory.Publisher
	if producer != nil {
		publisher = producer
	}
	return inventory.NewService(&inventory_db.DB{Bun: bunDB}, publisher, log)
}

func newDiscountService(bunDB *bun.DB, producer *kafka.Producer, log *logger.Logger) *discount.Service {
	var publisher discount.Publisher
	if producer != nil {
		publisher = producer
	}
	return discount.NewService(&discount_db.DB{Bun: bunDB}, publisher, log)
}
