package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FollowFeed/internal/domain/models"
)

type fakeExecutor struct {
	mu     sync.Mutex
	ok     bool
	err    error
	orders []models.TradeOrder
}

func (f *fakeExecutor) ExecuteTrade(_ context.Context, o models.TradeOrder) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	return f.ok, f.err
}

func (f *fakeExecutor) Orders() []models.TradeOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TradeOrder(nil), f.orders...)
}

type fakeAccounts struct{ acct *models.Account }

func (f fakeAccounts) CurrentAccount() *models.Account { return f.acct }

type fakeSource struct {
	mu    sync.Mutex
	rows  []models.PriceRow
	err   error
	calls int
	syms  []string
}

func (f *fakeSource) Fetch(_ context.Context, symbols []string) ([]models.PriceRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.syms = symbols
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.PriceRow(nil), f.rows...), nil
}

func (f *fakeSource) set(rows []models.PriceRow, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows, f.err = rows, err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTrigger struct {
	calls chan struct{}
	err   error
}

func (f *fakeTrigger) Trigger(context.Context) error {
	f.calls <- struct{}{}
	return f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeNotifier) Sent() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.sent...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSink) Publish(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) Types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingSink) Count(t models.EventType) int {
	n := 0
	for _, got := range r.Types() {
		if got == t {
			n++
		}
	}
	return n
}

type countingMetrics struct {
	nopMetrics
	mu      sync.Mutex
	follows map[models.FollowResult]int
	errs    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{follows: map[models.FollowResult]int{}, errs: map[string]int{}}
}

func (m *countingMetrics) RecordFollow(r models.FollowResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.follows[r]++
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *countingMetrics) Follows(r models.FollowResult) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.follows[r]
}

func (m *countingMetrics) Errors(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[kind]
}

// seqRandom replays fixed values, cycling when exhausted.
type seqRandom struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *seqRandom) Float64() float64 {
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *seqRandom) Intn(n int) int {
	v := r.ints[r.ii%len(r.ints)] % n
	r.ii++
	return v
}

var errBoom = errors.New("boom")

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func signal(id string, confidence float64) models.TradeSignal {
	return models.TradeSignal{
		ID:         id,
		Symbol:     "BTC",
		Side:       models.SideBuy,
		Price:      50000,
		Amount:     0.05,
		Confidence: confidence,
		Source:     SignalSource,
		Timestamp:  time.Now(),
	}
}
