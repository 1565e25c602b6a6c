package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"FollowFeed/internal/domain/models"
	pkgkafka "FollowFeed/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

type memStore struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (s *memStore) Store(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memStore) Recent(context.Context, int) ([]models.Event, error) { return s.events, nil }
func (s *memStore) Health(context.Context) error                        { return nil }

func encode(t *testing.T, e models.Event) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestFollowEventsHandlerStoresFollowOutcomes(t *testing.T) {
	store := &memStore{}
	h := NewFollowEventsHandler("followfeed.events", store, nil)
	if h.Topic() != "followfeed.events" {
		t.Fatalf("unexpected topic %s", h.Topic())
	}

	sig := signal("s1", 90)
	order := models.TradeOrder{SignalID: "s1", Symbol: "BTC", Side: models.SideBuy, Amount: 0.02, Price: 50000, Type: models.OrderTypeMarket}
	msgs := []models.Event{
		{Type: models.EventSignalReceived, Signal: &sig},
		{Type: models.EventSignalFollowed, Signal: &sig, Order: &order},
		{Type: models.EventFollowFailed, Signal: &sig, Order: &order},
	}
	for _, m := range msgs {
		if err := h.Handle(context.Background(), encode(t, m)); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if len(store.events) != 2 {
		t.Fatalf("expected 2 stored events, got %d", len(store.events))
	}
	if store.events[0].Order.Amount != 0.02 {
		t.Fatalf("unexpected stored order %+v", store.events[0].Order)
	}
}

func TestFollowEventsHandlerErrors(t *testing.T) {
	h := NewFollowEventsHandler("t", &memStore{err: errBoom}, nil)

	if err := h.Handle(context.Background(), []byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := h.Handle(context.Background(), encode(t, models.Event{Type: models.EventSignalFollowed})); err == nil {
		t.Fatalf("expected error for event without order")
	}
	order := models.TradeOrder{Symbol: "BTC"}
	if err := h.Handle(context.Background(), encode(t, models.Event{Type: models.EventSignalFollowed, Order: &order})); err == nil {
		t.Fatalf("expected store error")
	}
}

type latencyMetrics struct {
	nopMetrics
	ops []string
}

func (m *latencyMetrics) RecordLatency(op string, _ float64) { m.ops = append(m.ops, op) }

func TestSinkHookCarriesTraceAndTiming(t *testing.T) {
	m := &latencyMetrics{}
	hook := NewSinkHook(nil, m)

	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := hook.BeforeHandle(context.Background(), "followfeed.events", km, nil)
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	if pkgkafka.TraceID(ctx) != "abc" {
		t.Fatalf("trace id not propagated")
	}
	if _, ok := pkgkafka.StartTime(ctx); !ok {
		t.Fatalf("start time not stamped")
	}

	hook.AfterHandle(ctx, "followfeed.events", km, nil, nil)
	hook.OnError(ctx, "followfeed.events", km, nil, errBoom)
	if len(m.ops) != 1 || m.ops[0] != "sink_followfeed.events" {
		t.Fatalf("unexpected latency ops %v", m.ops)
	}
}
