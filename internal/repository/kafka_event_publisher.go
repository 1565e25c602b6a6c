package repository

import (
	"context"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/domain/repository"
	pkgkafka "FollowFeed/pkg/kafka"
)

// KafkaEventPublisher writes events to one topic, keyed by symbol so a symbol's events stay ordered.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, e models.Event) error {
	return p.producer.Publish(ctx, p.topic, eventKey(e), e)
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

func eventKey(e models.Event) []byte {
	if sym := e.Symbol(); sym != "" {
		return []byte(sym)
	}
	return []byte(e.Type)
}
