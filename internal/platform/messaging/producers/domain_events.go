package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/savings-fund-ledger/internal/config"
)

// DomainEventProducer publishes the ledger's own events (batch job reports) to the domain events topic
type DomainEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewDomainEventProducer ensures the domain events topic exists and opens a synchronous writer
func NewDomainEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DomainEventProducer, error) {
	if cfg.DomainEventsTopic == "" {
		return nil, fmt.Errorf("kafka domain events topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for domain event producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.DomainEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure domain events topic %s exists: %w", cfg.DomainEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DomainEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &DomainEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DomainEventsTopic,
	}, nil
}

// Publish writes value as JSON keyed by key. Messages with the same key land on the same partition.
func (p *DomainEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal domain event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish domain event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish domain event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published domain event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *DomainEventProducer) Close() error {
	p.logger.Info("Closing domain event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close domain event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
