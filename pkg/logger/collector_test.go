package logger

import (
	"context"
	"testing"
	"time"
)

type chanPublisher struct {
	ch chan []AggregatedLogEntry
}

func (p *chanPublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	p.ch <- payload.([]AggregatedLogEntry)
	return nil
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &chanPublisher{ch: make(chan []AggregatedLogEntry, 4)}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})

	c.AddLog("error", "poll failed", map[string]interface{}{"symbol": "BTC"}, "feed.go:10")
	c.AddLog("error", "poll failed", map[string]interface{}{"symbol": "BTC"}, "feed.go:10")
	c.AddLog("error", "poll failed", map[string]interface{}{"symbol": "ETH"}, "feed.go:10")
	if got := c.Pending(); got != 2 {
		t.Fatalf("expected 2 unique entries, got %d", got)
	}
	c.Close()

	select {
	case logs := <-pub.ch:
		if len(logs) != 2 {
			t.Fatalf("expected 2 entries in digest, got %d", len(logs))
		}
		total := 0
		for _, l := range logs {
			total += l.Count
		}
		if total != 3 {
			t.Fatalf("expected total count 3, got %d", total)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("digest was not published")
	}
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &chanPublisher{ch: make(chan []AggregatedLogEntry, 4)}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	select {
	case logs := <-pub.ch:
		if len(logs) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(logs))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("threshold flush did not happen")
	}
	if got := c.Pending(); got != 0 {
		t.Fatalf("expected empty collector after flush, got %d", got)
	}
}

func TestLoggerForwardsErrorsToCollector(t *testing.T) {
	pub := &chanPublisher{ch: make(chan []AggregatedLogEntry, 4)}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})
	l.Warn("ignored")
	l.Error("boom", String("op", "fetch"))
	l.RemoveCollector()

	select {
	case logs := <-pub.ch:
		if len(logs) != 1 || logs[0].Message != "boom" || logs[0].Fields["op"] != "fetch" {
			t.Fatalf("unexpected digest %+v", logs)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("digest was not published")
	}
}
