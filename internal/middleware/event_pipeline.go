package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	domrepo "FollowFeed/internal/domain/repository"
)

// EventPipeline sits between the event bus and the broker publisher.
// It validates, throttles high-frequency event types, and buffers when the broker is unavailable.
type EventPipeline struct {
	pub      domrepo.EventPublisher
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan models.Event
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per type+symbol last accepted time
	// throttled lists the event types subject to maxRPS; follow outcomes are never dropped
	throttled map[models.EventType]bool
}

type PipelineOption func(*EventPipeline)

// WithMaxRPS sets the max events per second per type and symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewEventPipeline(pub domrepo.EventPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		pub:      pub,
		metrics:  metrics,
		maxRPS:   50,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		throttled: map[models.EventType]bool{
			models.EventFeedPrices:     true,
			models.EventFeedStatus:     true,
			models.EventSignalReceived: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Event, p.bufSize)
	return p
}

// Run forwards events from the subscription until ctx is done or the channel closes.
func (p *EventPipeline) Run(ctx context.Context, events <-chan models.Event) {
	p.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = p.Process(ctx, e)
		}
	}
}

// Start launches background flushing of buffered events.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case e := <-p.bufCh:
				if err := p.pub.Publish(ctx, e); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					select {
					case p.bufCh <- e:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops background flushing and waits for it to exit.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.done
}

// Buffered returns the number of events waiting for a retry.
func (p *EventPipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles, and publishes e, buffering on errors.
func (p *EventPipeline) Process(ctx context.Context, e models.Event) error {
	start := time.Now()
	if err := validateEvent(e); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.throttled[e.Type] && !p.allow(string(e.Type)+":"+e.Symbol(), start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.pub.Publish(ctx, e); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- e:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateEvent(e models.Event) error {
	if e.Type == "" {
		return fmt.Errorf("event type empty")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	switch e.Type {
	case models.EventSignalReceived, models.EventSignalFollowed, models.EventFollowFailed:
		if e.Signal == nil || e.Signal.ID == "" {
			return fmt.Errorf("%s without signal", e.Type)
		}
	case models.EventAlertFired:
		if e.Alert == nil {
			return fmt.Errorf("%s without alert", e.Type)
		}
	}
	return nil
}

func (p *EventPipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[key]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	return true
}
