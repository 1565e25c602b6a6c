package refresh

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"FollowFeed/internal/domain/repository"
	"FollowFeed/pkg/cache"
	pkghttp "FollowFeed/pkg/http"
)

const lockKey = "market_data_cache:refresh_lock"

// HTTPTrigger asks the upstream refresh function to rebuild the price cache.
type HTTPTrigger struct {
	url     string
	client  *pkghttp.Client
	locker  cache.Service
	lockTTL time.Duration
}

type Option func(*HTTPTrigger)

// WithLock makes replicas share one refresh per ttl window through the cache.
func WithLock(c cache.Service, ttl time.Duration) Option {
	return func(t *HTTPTrigger) {
		t.locker = c
		t.lockTTL = ttl
	}
}

func WithClient(c *pkghttp.Client) Option {
	return func(t *HTTPTrigger) { t.client = c }
}

func NewHTTPTrigger(url string, timeout time.Duration, opts ...Option) *HTTPTrigger {
	t := &HTTPTrigger{
		url:    url,
		client: pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trigger POSTs an empty JSON object to the refresh URL. Non-2xx responses are errors.
// When another replica holds the lock the call is skipped.
func (t *HTTPTrigger) Trigger(ctx context.Context) error {
	if t.locker != nil {
		ok, err := t.locker.TryLock(ctx, lockKey, t.lockTTL)
		if err != nil {
			return fmt.Errorf("refresh lock: %w", err)
		}
		if !ok {
			return nil
		}
	}

	err := t.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: http.MethodPost,
		URL:    t.url,
		Body:   map[string]interface{}{},
	}, nil)
	if err != nil {
		if t.locker != nil {
			_ = t.locker.Unlock(ctx, lockKey)
		}
		return fmt.Errorf("refresh market data: %w", err)
	}
	return nil
}

// Noop is used when no refresh URL is configured.
type Noop struct{}

func (Noop) Trigger(context.Context) error { return nil }

var (
	_ repository.RefreshTrigger = (*HTTPTrigger)(nil)
	_ repository.RefreshTrigger = Noop{}
)
