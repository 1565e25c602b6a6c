package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/pkg/cache"
)

func TestCachePriceSourceOrdersByMarketCap(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "market_data_cache:ETH", models.PriceRow{Symbol: "ETH", Price: 3500, MarketCap: 400}, 0)
	_ = mc.Set(ctx, "market_data_cache:BTC", models.PriceRow{Symbol: "BTC", Price: 65000, MarketCap: 1200}, 0)
	_ = mc.Set(ctx, "market_data_cache:SOL", models.PriceRow{Symbol: "SOL", Price: 150, MarketCap: 70}, 0)

	rows, err := NewCachePriceSource(mc).Fetch(ctx, []string{"SOL", "ETH", "XRP", "BTC"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r.Symbol)
	}
	if strings.Join(got, ",") != "BTC,ETH,SOL" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestCachePriceSourceFillsMissingSymbol(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	_ = mc.Set(ctx, "market_data_cache:BNB", `{"price_usd":590.5}`, 0)

	rows, err := NewCachePriceSource(mc).Fetch(ctx, []string{"BNB"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("fetch = %v, %v", rows, err)
	}
	if rows[0].Symbol != "BNB" || rows[0].Price != 590.5 {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

type failingCache struct{ cache.Service }

func (failingCache) MGet(context.Context, ...string) (map[string]string, error) {
	return nil, errors.New("connection refused")
}

func TestCachePriceSourceTransportError(t *testing.T) {
	if _, err := NewCachePriceSource(failingCache{}).Fetch(context.Background(), []string{"BTC"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPriceQueryExpandsPlaceholders(t *testing.T) {
	q, args := priceQuery("followfeed", []string{"BTC", "ETH", "SOL"})
	if !strings.Contains(q, "FROM followfeed.market_data_cache") {
		t.Fatalf("missing table: %s", q)
	}
	if !strings.Contains(q, "symbol IN (?, ?, ?)") {
		t.Fatalf("placeholders: %s", q)
	}
	if !strings.Contains(q, "ORDER BY market_cap_usd DESC") {
		t.Fatalf("ordering: %s", q)
	}
	if len(args) != 3 || args[1] != "ETH" {
		t.Fatalf("args %v", args)
	}
}

func TestEventRow(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := models.Event{
		Type:      models.EventSignalFollowed,
		Timestamp: ts,
		Signal:    &models.TradeSignal{ID: "s1", Confidence: 88, Source: "AI Analysis"},
		Order:     &models.TradeOrder{Symbol: "BTC", Side: models.SideBuy, Amount: 0.02, Price: 50000, Type: models.OrderTypeMarket},
	}
	args, err := eventRow(e)
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if len(args) != 10 {
		t.Fatalf("expected 10 columns, got %d", len(args))
	}
	if args[1] != "signal.followed" || args[2] != "s1" || args[3] != "BTC" || args[8] != 88.0 {
		t.Fatalf("unexpected row %v", args)
	}

	if _, err := eventRow(models.Event{Type: models.EventSignalFollowed}); !errors.Is(err, errNoOrder) {
		t.Fatalf("expected errNoOrder, got %v", err)
	}
}

func TestEventKey(t *testing.T) {
	if string(eventKey(models.Event{Order: &models.TradeOrder{Symbol: "ETH"}})) != "ETH" {
		t.Fatalf("expected symbol key")
	}
	if string(eventKey(models.Event{Type: models.EventFeedStatus})) != "feed.status" {
		t.Fatalf("expected type key")
	}
}
