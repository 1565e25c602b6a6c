package di

import (
	"testing"

	"FollowFeed/internal/service/notify"
	"FollowFeed/internal/service/refresh"
	"FollowFeed/pkg/config"
	"FollowFeed/pkg/logger"
)

func TestProvideBookOpensConfiguredAccounts(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paper.Accounts = []string{"Main", " ", "Scalping"}
	cfg.Paper.InitialBalance = 2500
	cfg.Paper.HistorySize = 10

	book, err := ProvideBook(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("ProvideBook: %v", err)
	}
	accounts := book.Accounts()
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	cur := book.CurrentAccount()
	if cur == nil || cur.ID != "main" || cur.Name != "Main" {
		t.Fatalf("expected main to be current, got %+v", cur)
	}
	if cur.Balance != 2500 {
		t.Fatalf("expected opening balance 2500, got %v", cur.Balance)
	}
}

func TestProvideBookRejectsDuplicateNames(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paper.Accounts = []string{"Main", "main"}
	if _, err := ProvideBook(cfg, logger.Nop()); err == nil {
		t.Fatalf("expected duplicate account error")
	}
}

func TestProvidePriceSourceNeedsBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Market.Source = "redis"
	if _, err := ProvidePriceSource(cfg, nil, nil); err == nil {
		t.Fatalf("expected error without redis")
	}
	cfg.Market.Source = "clickhouse"
	if _, err := ProvidePriceSource(cfg, nil, nil); err == nil {
		t.Fatalf("expected error without clickhouse")
	}
	cfg.Market.Source = "csv"
	if _, err := ProvidePriceSource(cfg, nil, nil); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestProvideRefreshTriggerWithoutURL(t *testing.T) {
	cfg := &config.Config{}
	trig := ProvideRefreshTrigger(cfg, ProvideCache(nil))
	if _, ok := trig.(refresh.Noop); !ok {
		t.Fatalf("expected Noop trigger, got %T", trig)
	}

	cfg.Market.RefreshURL = "http://localhost/refresh"
	if _, ok := ProvideRefreshTrigger(cfg, ProvideCache(nil)).(*refresh.HTTPTrigger); !ok {
		t.Fatalf("expected HTTP trigger")
	}
}

func TestOptionalComponentsAreNilWhenDisabled(t *testing.T) {
	cfg := &config.Config{}
	if store := ProvideEventStore(cfg, nil); store != nil {
		t.Fatalf("expected nil store, got %T", store)
	}
	if pub := ProvideEventPublisher(cfg, nil); pub != nil {
		t.Fatalf("expected nil publisher, got %T", pub)
	}
	if p := ProvideEventPipeline(cfg, nil, nil); p != nil {
		t.Fatalf("expected nil pipeline")
	}
	c, err := ProvideKafkaConsumer(cfg, logger.Nop(), nil, nil)
	if err != nil || c != nil {
		t.Fatalf("expected no consumer, got %v %v", c, err)
	}
	if nq := ProvideNotificationQueue(cfg, logger.Nop(), nil, nil); nq.Queue != nil {
		t.Fatalf("expected no notification queue")
	}
	cfg.LogDigest.Enabled = true
	if ds := ProvideDigestSink(cfg, logger.Nop(), nil); ds.Queue != nil {
		t.Fatalf("expected no digest sink without redis")
	}
}

func TestProvideNotifierFallsBackToInlineDelivery(t *testing.T) {
	inbox := notify.NewInbox(5)
	d := notify.NewDeliverer(inbox, nil)
	n := ProvideNotifier(logger.Nop(), NotificationQueue{}, d)
	if _, ok := n.(*notify.LogNotifier); !ok {
		t.Fatalf("expected LogNotifier, got %T", n)
	}
}
