package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/securo-labs/threatline/internal/adapter/broker"
	"github.com/securo-labs/threatline/internal/adapter/repository"
	"github.com/securo-labs/threatline/internal/config"
	"github.com/securo-labs/threatline/internal/metrics"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (this is fine if the environment is already set)")
	}

	cfg := config.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("🔌 Database connection...")
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Error connecting to database: %v", err)
	}
	defer dbPool.Close()

	repo := repository.NewPostgresRepository(dbPool)

	metrics.InitMetrics()

	opts := broker.DefaultConsumerOptions()
	opts.Workers = cfg.ConsumerWorkers

	consumer := broker.NewConsumer(broker.Config{
		URL:   cfg.BrokerAddress,
		Topic: cfg.TopicName,
		Group: cfg.ConsumerGroup,
	}, opts, repo)
	defer consumer.Close()

	if err := consumer.Connect(ctx); err != nil {
		log.Fatalf("❌ Failed to connect to broker: %v", err)
	}

	// Cancel the worker context on interrupt; in-flight messages finish
	// before the workers return.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("🛑 Shutting down consumer...")
		cancel()
	}()

	log.Printf("🚀 Threat consumer running (%d workers, group '%s')", opts.Workers, cfg.ConsumerGroup)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("❌ Consumer failed: %v", err)
	}

	log.Println("✅ Consumer stopped gracefully")
}
