package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/securo-labs/threatline/internal/adapter/broker"
	"github.com/securo-labs/threatline/internal/adapter/classifier"
	"github.com/securo-labs/threatline/internal/adapter/handler"
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
	ctx := context.Background()

	// Database connection (query API only; the intake path never touches it)
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	repo := repository.NewPostgresRepository(dbPool)

	// Classifier client
	mlClient := classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout)
	log.Printf("✅ Classifier client targeting %s (timeout %v)", cfg.ClassifierURL, cfg.ClassifierTimeout)

	// Broker producer
	publisher := broker.NewPublisher(broker.Config{
		URL:   cfg.BrokerAddress,
		Topic: cfg.TopicName,
	}, cfg.ProducerAckTimeout)
	if err := publisher.Connect(ctx); err != nil {
		log.Fatalf("❌ Failed to connect to broker: %v", err)
	}
	defer publisher.Close()

	// Initialize pipeline metrics
	metrics.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// HTTP router
	router := mux.NewRouter()

	restHandler := handler.NewRestHandler(repo, mlClient, publisher)

	// Health check
	router.HandleFunc("/api/v1/health", restHandler.Health).Methods("GET")

	// Threat reporting endpoints
	router.HandleFunc("/threats/report", restHandler.ReportThreat).Methods("POST")
	router.HandleFunc("/threats", restHandler.ListReports).Methods("GET")
	router.HandleFunc("/threats/status", restHandler.Status).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Middleware
	router.Use(loggingMiddleware)

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("🚀 Threatline API listening on port %s", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("→ %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		log.Printf("← %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}
