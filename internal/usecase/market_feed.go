package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	drepo "FollowFeed/internal/domain/repository"
	"FollowFeed/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultRefreshEvery = 10
	defaultFetchTimeout = 5 * time.Second
	refreshTimeout      = 10 * time.Second
)

// DefaultMarketSymbols is used when Start is called with no symbols.
var DefaultMarketSymbols = []string{"BTC", "ETH", "SOL", "BNB", "XRP"}

var usd = message.NewPrinter(language.English)

// MarketFeed polls a price source, tracks connection health and evaluates price alerts.
type MarketFeed struct {
	source   drepo.PriceSource
	refresh  drepo.RefreshTrigger
	notifier drepo.Notifier
	metrics  drepo.Metrics
	sink     EventSink
	log      *logger.Logger
	now      func() time.Time
	newID    func() string

	interval     time.Duration
	refreshEvery int
	fetchTimeout time.Duration
	pollOnStart  bool

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.RWMutex
	status     models.ConnectionStatus
	symbols    []string
	prices     map[string]models.PriceSnapshot
	order      []string
	lastUpdate time.Time
	successes  int

	alertMu sync.Mutex
	alerts  map[string]*alertWatch
}

type alertWatch struct {
	alert  models.PriceAlert
	cancel context.CancelFunc
	done   chan struct{}
}

type FeedOption func(*MarketFeed)

func WithPollInterval(d time.Duration) FeedOption {
	return func(f *MarketFeed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithRefreshEvery sets how many successful polls pass between refresh triggers. Zero disables it.
func WithRefreshEvery(n int) FeedOption {
	return func(f *MarketFeed) {
		if n >= 0 {
			f.refreshEvery = n
		}
	}
}

func WithFetchTimeout(d time.Duration) FeedOption {
	return func(f *MarketFeed) {
		if d > 0 {
			f.fetchTimeout = d
		}
	}
}

// WithPollOnStart runs the first poll right away instead of after one interval.
func WithPollOnStart(v bool) FeedOption {
	return func(f *MarketFeed) { f.pollOnStart = v }
}

func WithRefreshTrigger(t drepo.RefreshTrigger) FeedOption {
	return func(f *MarketFeed) { f.refresh = t }
}

func WithNotifier(n drepo.Notifier) FeedOption {
	return func(f *MarketFeed) { f.notifier = n }
}

func WithFeedSink(sink EventSink) FeedOption {
	return func(f *MarketFeed) {
		if sink != nil {
			f.sink = sink
		}
	}
}

func WithFeedLogger(log *logger.Logger) FeedOption {
	return func(f *MarketFeed) {
		if log != nil {
			f.log = log
		}
	}
}

func WithFeedClock(now func() time.Time) FeedOption {
	return func(f *MarketFeed) {
		if now != nil {
			f.now = now
		}
	}
}

func NewMarketFeed(source drepo.PriceSource, metrics drepo.Metrics, opts ...FeedOption) *MarketFeed {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	f := &MarketFeed{
		source:       source,
		metrics:      metrics,
		sink:         nopSink{},
		log:          logger.Nop(),
		now:          time.Now,
		newID:        uuid.NewString,
		interval:     DefaultPollInterval,
		refreshEvery: DefaultRefreshEvery,
		fetchTimeout: defaultFetchTimeout,
		status:       models.StatusConnecting,
		prices:       make(map[string]models.PriceSnapshot),
		alerts:       make(map[string]*alertWatch),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start replaces any running poller with one for symbols.
func (f *MarketFeed) Start(ctx context.Context, symbols []string) {
	f.lifeMu.Lock()
	defer f.lifeMu.Unlock()

	f.stopPollerLocked()

	if len(symbols) == 0 {
		symbols = DefaultMarketSymbols
	}
	syms := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			syms = append(syms, s)
		}
	}

	f.mu.Lock()
	f.status = models.StatusConnecting
	f.symbols = syms
	f.mu.Unlock()
	f.publishStatus(models.StatusConnecting)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	go f.run(loopCtx, done)

	f.log.Info("market feed started",
		logger.Strings("symbols", syms),
		logger.Duration("interval_ms", f.interval),
	)
}

// Stop cancels the poller and every registered alert.
func (f *MarketFeed) Stop() {
	f.lifeMu.Lock()
	f.stopPollerLocked()
	f.lifeMu.Unlock()

	f.alertMu.Lock()
	watches := make([]*alertWatch, 0, len(f.alerts))
	for id, w := range f.alerts {
		watches = append(watches, w)
		delete(f.alerts, id)
	}
	f.alertMu.Unlock()

	for _, w := range watches {
		w.cancel()
		<-w.done
	}
}

func (f *MarketFeed) stopPollerLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	f.done = nil
}

func (f *MarketFeed) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if f.pollOnStart {
		f.Poll(ctx)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			f.Poll(ctx)
		}
	}
}

// Poll performs a single fetch and updates feed state from its outcome.
func (f *MarketFeed) Poll(ctx context.Context) {
	syms := f.Symbols()

	fetchCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	start := time.Now()
	rows, err := f.source.Fetch(fetchCtx, syms)
	cancel()
	f.metrics.RecordLatency("price_fetch", time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		f.mu.Lock()
		f.status = models.StatusDisconnected
		f.mu.Unlock()

		f.metrics.RecordPoll(false)
		f.metrics.RecordError("price_fetch")
		f.log.Error("market data poll failed", logger.Error(err), logger.Strings("symbols", syms))
		f.publishStatus(models.StatusDisconnected)
		return
	}

	ts := f.now()
	prices := make(map[string]models.PriceSnapshot, len(rows))
	order := make([]string, 0, len(rows))
	snaps := make([]models.PriceSnapshot, 0, len(rows))
	for _, r := range rows {
		snap := models.PriceSnapshot{
			Symbol:    r.Symbol,
			Price:     r.Price,
			Change24h: r.Change24h,
			Volume:    r.Volume,
			Timestamp: ts,
		}
		if _, dup := prices[r.Symbol]; !dup {
			order = append(order, r.Symbol)
		}
		prices[r.Symbol] = snap
	}
	for _, sym := range order {
		snaps = append(snaps, prices[sym])
	}

	f.mu.Lock()
	f.prices = prices
	f.order = order
	f.lastUpdate = ts
	f.status = models.StatusConnected
	f.successes++
	due := f.refreshEvery > 0 && f.successes%f.refreshEvery == 0
	f.mu.Unlock()

	f.metrics.RecordPoll(true)
	for _, s := range snaps {
		f.metrics.RecordLastPrice(s.Symbol, s.Price)
	}
	f.publishStatus(models.StatusConnected)
	f.sink.Publish(models.Event{Type: models.EventFeedPrices, Prices: snaps, Timestamp: ts})

	if due {
		f.triggerRefresh()
	}
}

func (f *MarketFeed) triggerRefresh() {
	if f.refresh == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := f.refresh.Trigger(ctx); err != nil {
			f.metrics.RecordError("refresh_trigger")
			f.log.Warn("market data refresh failed", logger.Error(err))
			return
		}
		f.log.Debug("market data refresh triggered")
	}()
}

func (f *MarketFeed) publishStatus(s models.ConnectionStatus) {
	f.metrics.RecordConnection(s)
	f.sink.Publish(models.Event{Type: models.EventFeedStatus, Status: s})
}

func (f *MarketFeed) Status() models.ConnectionStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

func (f *MarketFeed) IsConnected() bool { return f.Status() == models.StatusConnected }

// LastUpdate returns the instant of the last successful poll; false before the first one.
func (f *MarketFeed) LastUpdate() (time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastUpdate, !f.lastUpdate.IsZero()
}

func (f *MarketFeed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Prices returns the latest snapshots in the order the source returned them.
func (f *MarketFeed) Prices() []models.PriceSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.PriceSnapshot, 0, len(f.order))
	for _, sym := range f.order {
		out = append(out, f.prices[sym])
	}
	return out
}

func (f *MarketFeed) Snapshot(symbol string) (models.PriceSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.prices[strings.ToUpper(symbol)]
	return s, ok
}

// GetPrice returns 0 when the symbol has no snapshot.
func (f *MarketFeed) GetPrice(symbol string) float64 {
	s, _ := f.Snapshot(symbol)
	return s.Price
}

// GetPriceChange returns 0 when the symbol has no snapshot.
func (f *MarketFeed) GetPriceChange(symbol string) float64 {
	s, _ := f.Snapshot(symbol)
	return s.Change24h
}

// CreatePriceAlert registers a level-triggered alert evaluated every poll interval.
// Nothing is registered when the symbol has no snapshot yet.
func (f *MarketFeed) CreatePriceAlert(symbol string, target float64, direction models.AlertDirection) (models.PriceAlert, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := f.Snapshot(symbol); !ok {
		return models.PriceAlert{}, false
	}

	alert := models.PriceAlert{
		ID:          f.newID(),
		Symbol:      symbol,
		TargetPrice: target,
		Direction:   direction,
		CreatedAt:   f.now(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &alertWatch{alert: alert, cancel: cancel, done: make(chan struct{})}

	f.alertMu.Lock()
	f.alerts[alert.ID] = w
	f.alertMu.Unlock()

	go f.watch(ctx, w)

	f.log.Info("price alert registered",
		logger.String("id", alert.ID),
		logger.String("symbol", symbol),
		logger.String("direction", string(direction)),
		logger.Float64("target", target),
	)
	return alert, true
}

// CancelPriceAlert stops the alert's timer. It reports false for unknown IDs.
func (f *MarketFeed) CancelPriceAlert(id string) bool {
	f.alertMu.Lock()
	w, ok := f.alerts[id]
	delete(f.alerts, id)
	f.alertMu.Unlock()
	if !ok {
		return false
	}
	w.cancel()
	<-w.done
	return true
}

// Alerts returns the registered alerts ordered by creation time.
func (f *MarketFeed) Alerts() []models.PriceAlert {
	f.alertMu.Lock()
	out := make([]models.PriceAlert, 0, len(f.alerts))
	for _, w := range f.alerts {
		out = append(out, w.alert)
	}
	f.alertMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *MarketFeed) watch(ctx context.Context, w *alertWatch) {
	defer close(w.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			f.EvaluateAlert(ctx, w.alert)
		}
	}
}

// EvaluateAlert checks alert against the current snapshot and notifies when it holds.
// It reports whether the alert fired. A missing or zero price never fires.
func (f *MarketFeed) EvaluateAlert(ctx context.Context, alert models.PriceAlert) bool {
	price := f.GetPrice(alert.Symbol)
	if price == 0 || !alert.Triggered(price) {
		return false
	}

	n := models.Notification{
		ID:        f.newID(),
		Title:     fmt.Sprintf("Price Alert: %s", alert.Symbol),
		Body:      fmt.Sprintf("%s hit %s $%s. Current: $%s", alert.Symbol, alert.Direction, formatUSD(alert.TargetPrice), formatUSD(price)),
		Symbol:    alert.Symbol,
		CreatedAt: f.now(),
	}

	f.metrics.RecordAlertFired(alert.Symbol)
	f.log.Info("price alert fired",
		logger.String("id", alert.ID),
		logger.String("symbol", alert.Symbol),
		logger.Float64("price", price),
	)
	f.sink.Publish(models.Event{Type: models.EventAlertFired, Alert: &alert, Notification: &n})

	if f.notifier != nil {
		if err := f.notifier.Notify(ctx, n); err != nil {
			f.metrics.RecordError("notify")
			f.log.Warn("alert notification failed", logger.String("id", alert.ID), logger.Error(err))
		}
	}
	return true
}

func formatUSD(v float64) string {
	return usd.Sprintf("%.2f", v)
}
