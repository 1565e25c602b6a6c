package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

type payload struct {
	Symbol string `json:"symbol"`
}

func TestParsePayload(t *testing.T) {
	raw := json.RawMessage(`{"symbol":"BTC"}`)
	cases := []interface{}{
		raw,
		[]byte(raw),
		map[string]interface{}{"symbol": "BTC"},
		payload{Symbol: "BTC"},
		&payload{Symbol: "BTC"},
	}
	for _, in := range cases {
		got, err := ParsePayload[payload](in)
		if err != nil || got.Symbol != "BTC" {
			t.Fatalf("ParsePayload(%T) = %+v, %v", in, got, err)
		}
	}
	if _, err := ParsePayload[payload](42); err == nil {
		t.Fatalf("expected error for int payload")
	}
}

type recordJob struct {
	got []string
	err error
}

func (j *recordJob) Name() string { return "record" }
func (j *recordJob) Type() string { return "record" }
func (j *recordJob) Handle(_ context.Context, p interface{}) error {
	pl, err := ParsePayload[payload](p)
	if err != nil {
		return err
	}
	j.got = append(j.got, pl.Symbol)
	return j.err
}

func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
}

func TestDispatchRunsRegisteredJob(t *testing.T) {
	client := unreachable()
	defer client.Close()

	q := NewRedisQueue(nil, &QueueConfig{RetryLimit: 1}, client, ModeProducerConsumer)
	job := &recordJob{}
	q.RegisterJob(job)
	q.RegisterJob(job)

	msg := Message{ID: "1", Type: "record", Payload: json.RawMessage(`{"symbol":"ETH"}`)}
	if err := q.dispatch(msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(job.got) != 1 || job.got[0] != "ETH" {
		t.Fatalf("unexpected handled payloads %v", job.got)
	}

	if err := q.dispatch(Message{ID: "2", Type: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestDispatchReturnsJobError(t *testing.T) {
	client := unreachable()
	defer client.Close()

	q := NewRedisQueue(nil, &QueueConfig{RetryLimit: 0}, client, ModeConsumerOnly)
	boom := errors.New("boom")
	q.RegisterJob(&recordJob{err: boom})

	err := q.dispatch(Message{ID: "1", Type: "record", Payload: json.RawMessage(`{"symbol":"BTC"}`)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestEnqueueRequiresRunningQueue(t *testing.T) {
	client := unreachable()
	defer client.Close()

	q := NewRedisQueue(nil, nil, client, ModeProducerOnly)
	if err := q.Enqueue(context.Background(), "x", payload{}); err == nil {
		t.Fatalf("expected error before start")
	}
	if err := q.Start(); err == nil {
		t.Fatalf("expected ping failure against unreachable redis")
	}
}

func TestModeString(t *testing.T) {
	if ModeProducerOnly.String() != "producer-only" || ModeProducerConsumer.String() != "producer-consumer" {
		t.Fatalf("unexpected mode strings")
	}
}
