package repository

import (
	"context"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/internal/domain/repository"
	"github.com/lotoos0/memex-sim/pkg/kafka"
)

// KafkaPublisher streams tick envelopes to a Kafka topic keyed by symbol so
// downstream consumers see per-symbol ordering.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env *models.TickEnvelope) error {
	return p.producer.Publish(ctx, p.topic, []byte(env.Symbol), env)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
