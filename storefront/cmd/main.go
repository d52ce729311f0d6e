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

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/pkg/config"
	"github.com/gauravniet133/insta-canteen-connect/pkg/logger"
	"github.com/gauravniet133/insta-canteen-connect/pkg/metrics"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cache"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/checkout"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/clients"
	h "github.com/gauravniet133/insta-canteen-connect/storefront/internal/http"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/realtime"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/repository"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	HTTPPort           string
	Mongo              repository.MongoConfig
	RedisAddr          string
	RedisPassword      string
	CartCacheTTL       time.Duration
	KafkaBrokers       []string
	KafkaGroupID       string
	OrdersServiceURL   string
	CatalogServiceURL  string
	JWTSecret          string
	LogLevel           string
	RequestTimeout     time.Duration
	OrderTimeout       time.Duration
	ShutdownTimeout    time.Duration
	PingInterval       time.Duration
	CartIdleTimeout    time.Duration
	JanitorInterval    time.Duration
	MaxRequestBodySize int64
}

func loadConfig() Config {
	return Config{
		HTTPPort: config.GetEnv("HTTP_PORT", "8080"),
		Mongo: repository.MongoConfig{
			URI:                    config.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:               config.GetEnv("MONGO_DATABASE", "storefront"),
			AppName:                "storefront",
			MaxPoolSize:            uint64(config.GetInt("MONGO_MAX_POOL", 100)),
			MinPoolSize:            uint64(config.GetInt("MONGO_MIN_POOL", 0)),
			ConnectTimeout:         config.GetDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			ServerSelectionTimeout: config.GetDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		},
		RedisAddr:          config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      config.GetEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:       config.GetDuration("CART_CACHE_TTL", cache.DefaultTTL),
		KafkaBrokers:       config.GetList("KAFKA_BROKERS", "localhost:9092"),
		KafkaGroupID:       config.GetEnv("KAFKA_GROUP_ID", realtime.InstanceGroupID("storefront")),
		OrdersServiceURL:   config.GetEnv("ORDERS_SERVICE_URL", "http://localhost:8082"),
		CatalogServiceURL:  config.GetEnv("CATALOG_SERVICE_URL", "http://localhost:8081"),
		JWTSecret:          config.GetEnv("JWT_SECRET", "dev-secret"),
		LogLevel:           config.GetEnv("LOG_LEVEL", "info"),
		RequestTimeout:     config.GetDuration("REQUEST_TIMEOUT", 5*time.Second),
		OrderTimeout:       config.GetDuration("ORDER_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    config.GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		PingInterval:       config.GetDuration("WS_PING_INTERVAL", 30*time.Second),
		CartIdleTimeout:    config.GetDuration("CART_IDLE_TIMEOUT", 30*time.Minute),
		JanitorInterval:    config.GetDuration("CART_JANITOR_INTERVAL", 5*time.Minute),
		MaxRequestBodySize: int64(config.GetInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
	}
}

func main() {
	config.LoadDotEnv()
	cfg := loadConfig()

	log := logger.New("storefront", cfg.LogLevel)
	log.Info("storefront starting...", "brokers", strings.Join(cfg.KafkaBrokers, ","))
	var wg sync.WaitGroup

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer connectCancel()

	db, err := repository.ConnectMongoDB(connectCtx, cfg.Mongo)
	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Client().Disconnect(context.Background())
	}()
	log.Info("connected to MongoDB", "database", cfg.Mongo.Database, "max_pool", cfg.Mongo.MaxPoolSize)

	repo := repository.NewMongoRepository(db)
	if err := repository.EnsureIndexes(connectCtx, repo); err != nil {
		log.Error("failed to create cart indexes", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(connectCtx).Err(); err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	log.Info("redis ping succeeded")

	hub := realtime.NewHub(0, log)
	store := cart.NewStore(repo, cache.NewRedisCache(redisClient, cfg.CartCacheTTL), hub, log)

	ordersClient := clients.NewOrdersClient(cfg.OrdersServiceURL, cfg.OrderTimeout, log)
	catalogClient := clients.NewCatalogClient(cfg.CatalogServiceURL, cfg.RequestTimeout, log)
	checkoutSvc := checkout.NewCheckoutService(store, ordersClient, hub, cfg.OrderTimeout, log)

	bgCtx, bgCancel := context.WithCancel(context.Background())

	// Idle cart eviction
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.RunJanitor(bgCtx, cfg.JanitorInterval, cfg.CartIdleTimeout)
	}()

	// Order change stream
	consumer := realtime.NewConsumer(hub, log, cfg.KafkaGroupID, cfg.KafkaBrokers...)
	log.Info("order stream consumer group", "group_id", cfg.KafkaGroupID)
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(bgCtx)
	}()

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(store, catalogClient, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(checkoutSvc, log),
		Orders:   h.NewOrdersHandler(ordersClient, store, catalogClient, hub, cfg.RequestTimeout, log),
		Menu:     h.NewMenuHandler(catalogClient, cfg.RequestTimeout, log),
		Stream:   h.NewStreamHandler(hub, cfg.PingInterval, log),
	}, auth.NewVerifier(cfg.JWTSecret), metrics.NewServerMetrics("storefront", nil), cfg.MaxRequestBodySize)

	// No WriteTimeout: the order stream holds its connection open.
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("storefront listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storefront...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	bgCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info("background workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("background workers didn't stop in time")
	}

	if err := consumer.Close(); err != nil {
		log.Error("failed to close kafka reader", "error", err)
	}
	log.Info("storefront stopped")
}
