package usecase

import (
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	drepo "FollowFeed/internal/domain/repository"
)

// EventSink receives state-change events from the engine and the feed.
type EventSink interface {
	Publish(e models.Event)
}

// EventBus fans events out to subscribers. Sends never block: a full
// subscriber buffer drops the event for that subscriber only.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[int]chan models.Event
	next    int
	closed  bool
	metrics drepo.Metrics
	now     func() time.Time
}

func NewEventBus(metrics drepo.Metrics) *EventBus {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &EventBus{
		subs:    make(map[int]chan models.Event),
		metrics: metrics,
		now:     time.Now,
	}
}

// Subscribe registers a subscriber. The returned cancel func closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
}

func (b *EventBus) Publish(e models.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.metrics.RecordError("bus_drop")
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscriptions get a closed channel.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

var _ EventSink = (*EventBus)(nil)

type nopSink struct{}

func (nopSink) Publish(models.Event) {}

type nopMetrics struct{}

func (nopMetrics) RecordSignal(string)                      {}
func (nopMetrics) RecordFollow(models.FollowResult)         {}
func (nopMetrics) RecordBacklog(int)                        {}
func (nopMetrics) RecordPoll(bool)                          {}
func (nopMetrics) RecordConnection(models.ConnectionStatus) {}
func (nopMetrics) RecordLastPrice(string, float64)          {}
func (nopMetrics) RecordAlertFired(string)                  {}
func (nopMetrics) RecordError(string)                       {}
func (nopMetrics) RecordLatency(string, float64)            {}
