package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig describes the cart database. Zero values take the defaults
// below.
type MongoConfig struct {
	URI                    string
	Database               string
	AppName                string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

const (
	defaultMaxPoolSize            = 100
	defaultMinPoolSize            = 0
	defaultConnectTimeout         = 10 * time.Second
	defaultServerSelectionTimeout = 5 * time.Second
)

func (c MongoConfig) withDefaults() MongoConfig {
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = defaultServerSelectionTimeout
	}
	return c
}

func (c MongoConfig) clientOptions() (*options.ClientOptions, error) {
	c = c.withDefaults()
	if c.URI == "" || c.Database == "" {
		return nil, errors.New("mongo uri and database are required")
	}
	if c.MinPoolSize > c.MaxPoolSize {
		return nil, fmt.Errorf("mongo min pool size %d exceeds max %d", c.MinPoolSize, c.MaxPoolSize)
	}

	opts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(c.ConnectTimeout).
		SetServerSelectionTimeout(c.ServerSelectionTimeout).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize)
	if c.AppName != "" {
		opts.SetAppName(c.AppName)
	}
	return opts, opts.Validate()
}

// ConnectMongoDB dials and pings the cart database.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	opts, err := cfg.clientOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB config: %w", err)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(cfg.Database), nil
}
