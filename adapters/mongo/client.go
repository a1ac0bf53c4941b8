package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Client holds the connection to the database the device configuration lives in
type Client struct {
	conn     *mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects to uri and pings the primary before returning
func NewClient(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("robozinho").
		SetMaxPoolSize(10).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := conn.Ping(ctx, readpref.Primary()); err != nil {
		conn.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("Connected to config store", zap.String("store", "mongo"), zap.String("database", dbName))
	return &Client{conn: conn, Database: conn.Database(dbName), logger: logger}, nil
}

// Close disconnects, waiting for in-use connections until ctx is done
func (c *Client) Close(ctx context.Context) error {
	if err := c.conn.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	c.logger.Info("Disconnected from config store", zap.String("store", "mongo"))
	return nil
}
