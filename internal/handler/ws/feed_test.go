package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/usecase"
	xlogger "FollowFeed/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func startServer(t *testing.T) (*usecase.EventBus, *FeedHandler, string) {
	t.Helper()
	bus := usecase.NewEventBus(nil)
	h := NewFeedHandler(xlogger.Nop(), bus)
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
		bus.Close()
	})
	return bus, h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feed"
}

func waitSubscribers(t *testing.T, bus *usecase.EventBus, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bus.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, bus.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedStreamsEvents(t *testing.T) {
	bus, h, url := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitSubscribers(t, bus, 1)
	if h.Clients() != 1 {
		t.Fatalf("expected 1 client")
	}

	bus.Publish(models.Event{Type: models.EventFeedStatus, Status: models.StatusConnected})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != models.EventFeedStatus || got.Status != models.StatusConnected {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestFeedFiltersByTypePrefix(t *testing.T) {
	bus, _, url := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?types=alert.", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitSubscribers(t, bus, 1)

	bus.Publish(models.Event{Type: models.EventFeedStatus, Status: models.StatusConnected})
	bus.Publish(models.Event{Type: models.EventAlertFired, Alert: &models.PriceAlert{ID: "a1", Symbol: "BTC"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != models.EventAlertFired || got.Alert == nil || got.Alert.ID != "a1" {
		t.Fatalf("filter let through %+v", got)
	}
}

func TestFeedUnsubscribesOnDisconnect(t *testing.T) {
	bus, h, url := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitSubscribers(t, bus, 1)
	_ = conn.Close()
	waitSubscribers(t, bus, 0)

	deadline := time.Now().Add(time.Second)
	for h.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.Clients() != 0 {
		t.Fatalf("client not removed")
	}
}

func TestSplitTypes(t *testing.T) {
	got := splitTypes(" signal., ,feed.prices")
	if len(got) != 2 || got[0] != "signal." || got[1] != "feed.prices" {
		t.Fatalf("unexpected %v", got)
	}
}
