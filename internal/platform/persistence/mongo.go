package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/savings-fund-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB holds the client and the audit journal collection
type MongoDB struct {
	logger      *slog.Logger
	client      *mongo.Client
	journal     *mongo.Collection
	pingTimeout time.Duration
}

func clientOptions(appName string, cfg *config.MongoDBConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetConnectTimeout(cfg.Timeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime)
}

// NewMongoDB connects to the journal database and verifies the primary is reachable
func NewMongoDB(ctx context.Context, logger *slog.Logger, appName string, cfg *config.MongoDBConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, clientOptions(appName, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := &MongoDB{
		logger:      logger,
		client:      client,
		journal:     client.Database(cfg.Database).Collection(cfg.JournalCollection),
		pingTimeout: cfg.Timeout,
	}
	if err := db.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database, "journal", cfg.JournalCollection)
	return db, nil
}

// Journal returns the collection posted transactions are projected into
func (m *MongoDB) Journal() *mongo.Collection {
	return m.journal
}

// Ping checks that the primary answers within the configured timeout
func (m *MongoDB) Ping(ctx context.Context) error {
	if m.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.pingTimeout)
		defer cancel()
	}
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
