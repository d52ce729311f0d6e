package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	ordershttp "github.com/gauravniet133/insta-canteen-connect/orders-service/internal/http"
	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/publisher"
	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/repository"
	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/service"
	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/pkg/config"
	"github.com/gauravniet133/insta-canteen-connect/pkg/logger"
	"github.com/gauravniet133/insta-canteen-connect/pkg/metrics"
)

type Config struct {
	HTTPPort       string
	KafkaBrokers   []string
	JWTSecret      string
	RequestTimeout time.Duration
	LogLevel       string
	DB             repository.Credentials
}

func loadConfig() Config {
	return Config{
		HTTPPort:       config.GetEnv("HTTP_PORT", "8082"),
		KafkaBrokers:   config.GetList("KAFKA_BROKERS", "localhost:9092"),
		JWTSecret:      config.GetEnv("JWT_SECRET", "dev-secret"),
		RequestTimeout: config.GetDuration("REQUEST_TIMEOUT", 5*time.Second),
		LogLevel:       config.GetEnv("LOG_LEVEL", "info"),
		DB: repository.Credentials{
			Host:              config.GetEnv("DB_HOST", "localhost"),
			Port:              config.GetInt("DB_PORT", 5432),
			User:              config.GetEnv("DB_USER", "postgres"),
			Password:          config.GetEnv("DB_PASSWORD", "postgres"),
			DBName:            config.GetEnv("DB_NAME", "canteen"),
			MigrationsDirPath: config.GetEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		},
	}
}

func main() {
	config.LoadDotEnv()
	cfg := loadConfig()

	log := logger.New("orders-service", cfg.LogLevel)
	log.Info("orders-service starting...", "brokers", strings.Join(cfg.KafkaBrokers, ","))
	var wg sync.WaitGroup

	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database migrations completed")

	// Start outbox relay
	poller := publisher.NewOutboxPoller(repo, log, cfg.KafkaBrokers...)
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	svc := service.NewOrderService(repo, log)
	handler := ordershttp.NewOrdersHandler(svc, cfg.RequestTimeout, log)
	router := ordershttp.NewRouter(handler, auth.NewVerifier(cfg.JWTSecret), metrics.NewServerMetrics("orders", nil))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("orders service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down orders service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	pollerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info("outbox poller stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("outbox poller didn't stop in time")
	}

	if err := poller.Close(); err != nil {
		log.Error("failed to close kafka writer", "error", err)
	}
	log.Info("orders service stopped")
}
