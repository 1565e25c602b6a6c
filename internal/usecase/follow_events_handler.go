package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FollowFeed/internal/domain/models"
	drepo "FollowFeed/internal/domain/repository"
	pkgkafka "FollowFeed/pkg/kafka"
	"FollowFeed/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// FollowEventsHandler consumes bus events from Kafka and persists follow outcomes.
type FollowEventsHandler struct {
	topic   string
	store   drepo.EventStore
	metrics drepo.Metrics
}

func NewFollowEventsHandler(topic string, store drepo.EventStore, metrics drepo.Metrics) *FollowEventsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &FollowEventsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *FollowEventsHandler) Topic() string { return h.topic }

// Handle stores signal.followed and signal.follow_failed events; other types are acknowledged and skipped.
func (h *FollowEventsHandler) Handle(ctx context.Context, b []byte) error {
	var e models.Event
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode event: %w", err)
	}
	if e.Type != models.EventSignalFollowed && e.Type != models.EventFollowFailed {
		return nil
	}
	if e.Order == nil {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("event %s without order", e.Type)
	}

	start := time.Now()
	err := h.store.Store(ctx, e)
	h.metrics.RecordLatency("event_store", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*FollowEventsHandler)(nil)

// NewSinkHook stamps trace and start time on each consumed record and logs failed ones.
func NewSinkHook(log *logger.Logger, metrics drepo.Metrics) pkgkafka.ConsumerHook {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
		After: func(ctx context.Context, topic string, _ kafka.Message, _ []byte, _ error) {
			if start, ok := pkgkafka.StartTime(ctx); ok {
				metrics.RecordLatency("sink_"+topic, time.Since(start).Seconds())
			}
		},
		Err: func(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
			log.Warn("event sink record failed",
				logger.String("topic", topic),
				logger.Int("partition", km.Partition),
				logger.Int64("offset", km.Offset),
				logger.String("trace_id", pkgkafka.TraceID(ctx)),
				logger.Error(err),
			)
		},
	}
}
