package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cataloghttp "github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/http"
	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/repository"
	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/service"
	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/pkg/config"
	"github.com/gauravniet133/insta-canteen-connect/pkg/logger"
	"github.com/gauravniet133/insta-canteen-connect/pkg/metrics"
)

type Config struct {
	HTTPPort       string
	DBPath         string
	MigrationsPath string
	JWTSecret      string
	RequestTimeout time.Duration
	LogLevel       string
}

func loadConfig() Config {
	return Config{
		HTTPPort:       config.GetEnv("HTTP_PORT", "8081"),
		DBPath:         config.GetEnv("DB_PATH", "./internal/repository/catalog.db"),
		MigrationsPath: config.GetEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		JWTSecret:      config.GetEnv("JWT_SECRET", "dev-secret"),
		RequestTimeout: config.GetDuration("REQUEST_TIMEOUT", 5*time.Second),
		LogLevel:       config.GetEnv("LOG_LEVEL", "info"),
	}
}

func main() {
	config.LoadDotEnv()
	cfg := loadConfig()

	log := logger.New("catalog-service", cfg.LogLevel)
	log.Info("catalog-service starting...", "db_path", cfg.DBPath)

	repo, err := repository.NewRepository(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("migrations completed successfully")

	svc := service.NewCatalogService(repo, log)
	handler := cataloghttp.NewCatalogHandler(svc, cfg.RequestTimeout, log)
	router := cataloghttp.NewRouter(handler, auth.NewVerifier(cfg.JWTSecret), metrics.NewServerMetrics("catalog", nil))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("catalog service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down catalog service...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	log.Info("catalog service stopped")
}
