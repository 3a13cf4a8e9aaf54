package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Config holds the connection settings for the report archive
type Config struct {
	URI      string
	Database string
}

// ValidateConfig fills defaults for empty fields
func ValidateConfig(config *Config, logger *zap.Logger) {
	if config.URI == "" {
		config.URI = "mongodb://localhost:27017"
		logger.Info("Using default MongoDB URI", zap.String("uri", config.URI))
	}
	if config.Database == "" {
		config.Database = "interview"
		logger.Info("Using default MongoDB database", zap.String("database", config.Database))
	}
}

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	ValidateConfig(&config, logger)

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", config.Database))

	return &Client{
		Client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
