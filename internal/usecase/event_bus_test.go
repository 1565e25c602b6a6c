package usecase

import (
	"testing"

	"FollowFeed/internal/domain/models"
)

func TestEventBusDelivers(t *testing.T) {
	bus := NewEventBus(nil)
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	bus.Publish(models.Event{Type: models.EventFeedStatus, Status: models.StatusConnected})

	e := <-ch
	if e.Type != models.EventFeedStatus || e.Status != models.StatusConnected {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be stamped")
	}
}

func TestEventBusDropsForSlowSubscriber(t *testing.T) {
	m := newCountingMetrics()
	bus := NewEventBus(m)
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(models.Event{Type: models.EventFeedPrices})
	bus.Publish(models.Event{Type: models.EventFeedStatus})

	if got := (<-ch).Type; got != models.EventFeedPrices {
		t.Fatalf("expected first event kept, got %s", got)
	}
	if m.Errors("bus_drop") != 1 {
		t.Fatalf("expected one drop, got %d", m.Errors("bus_drop"))
	}
}

func TestEventBusCancelClosesChannel(t *testing.T) {
	bus := NewEventBus(nil)
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
	bus.Publish(models.Event{Type: models.EventFeedStatus})
}

func TestEventBusClose(t *testing.T) {
	bus := NewEventBus(nil)
	ch, _ := bus.Subscribe(1)
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	late, _ := bus.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatalf("expected closed channel after Close")
	}
}
