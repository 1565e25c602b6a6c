package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type flakyHandler struct {
	failures int
	calls    int
	last     string
}

func (h *flakyHandler) Topic() string { return "events" }

func (h *flakyHandler) Handle(_ context.Context, b []byte) error {
	h.calls++
	h.last = string(b)
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(nil,
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{failures: 2}
	c.RegisterHandler(h)

	errs := 0
	c.SetHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { errs++ }})

	if err := c.process(&message{topic: "events", data: []byte("x")}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.calls != 3 || errs != 2 {
		t.Fatalf("calls=%d errs=%d", h.calls, errs)
	}
}

func TestProcessGivesUpAfterRetries(t *testing.T) {
	c := newTestConsumer(t, 1)
	h := &flakyHandler{failures: 10}
	c.RegisterHandler(h)

	if err := c.process(&message{topic: "events", data: []byte("x")}); err == nil {
		t.Fatalf("expected error")
	}
	if h.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", h.calls)
	}
}

func TestProcessBeforeHookCanRewritePayload(t *testing.T) {
	c := newTestConsumer(t, 0)
	h := &flakyHandler{}
	c.RegisterHandler(h)
	c.SetHook(NewHookChain(HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, _ []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, []byte("rewritten"), nil
		},
	}))

	if err := c.process(&message{topic: "events", data: []byte("x")}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.last != "rewritten" {
		t.Fatalf("expected rewritten payload, got %q", h.last)
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		if d <= 0 || d > 100*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v out of bounds", attempt, d)
		}
	}
}
