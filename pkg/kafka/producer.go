package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer wraps a kafka-go writer with JSON value encoding.
type Producer struct {
	writer *kafka.Writer
}

// ProducerOption configures the producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer settings.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Async        bool
}

// WithBrokers sets the broker list.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithRequiredAcks sets the ack level (-1 all, 0 none, 1 leader).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

// WithCompression sets the codec: gzip, snappy, lz4, zstd or none.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

// WithAsync toggles fire-and-forget writes.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// NewProducer creates a producer for the given brokers.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: 1,
		Compression:  "gzip",
		MaxAttempts:  3,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Async:        cfg.Async,
	}
	return &Producer{writer: writer}, nil
}

// Publish sends one message; non-byte values are JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	var v []byte
	switch val := value.(type) {
	case []byte:
		v = val
	case string:
		v = []byte(val)
	default:
		var err error
		v, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: v,
		Time:  time.Now(),
	})
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func parseCompression(codec string) kafka.Compression {
	switch codec {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none", "":
		return 0
	default:
		return kafka.Gzip
	}
}
