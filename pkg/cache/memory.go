package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryItem struct {
	value    string
	expireAt time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && now.After(m.expireAt)
}

// MemoryCache implements Service in process with LRU eviction. Used in tests
// and when Redis is disabled.
type MemoryCache struct {
	data    map[string]*memoryItem
	access  map[string]time.Time
	mu      sync.Mutex
	maxSize int
	ticker  *time.Ticker
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		stop:    make(chan struct{}),
	}
	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.setLocked(key, data, expiration)
	return nil
}

func (mc *MemoryCache) setLocked(key, data string, expiration time.Duration) {
	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	now := time.Now()
	item := &memoryItem{value: data}
	if expiration > 0 {
		item.expireAt = now.Add(expiration)
	}
	mc.data[key] = item
	mc.access[key] = now
}

// lookupLocked returns a live item, dropping it when expired.
func (mc *MemoryCache) lookupLocked(key string) (*memoryItem, bool) {
	item, ok := mc.data[key]
	if !ok {
		return nil, false
	}
	if item.expired(time.Now()) {
		delete(mc.data, key)
		delete(mc.access, key)
		return nil, false
	}
	return item, true
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.lookupLocked(key)
	if ok {
		mc.access[key] = time.Now()
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return decode(item.value, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if _, ok := mc.lookupLocked(key); ok {
			return true, nil
		}
	}
	return false, nil
}

// Increment follows Redis INCR: a missing key starts at zero and keeps no expiry.
func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.lookupLocked(key)
	if !ok {
		mc.setLocked(key, "1", 0)
		return 1, nil
	}
	n, err := strconv.ParseInt(item.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	item.value = strconv.FormatInt(n, 10)
	return n, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	item, ok := mc.lookupLocked(key)
	if !ok {
		return false, nil
	}
	item.expireAt = time.Now().Add(expiration)
	return true, nil
}

func (mc *MemoryCache) MSet(_ context.Context, values map[string]interface{}, expiration time.Duration) error {
	encoded := make(map[string]string, len(values))
	for key, value := range values {
		data, err := encode(value)
		if err != nil {
			return err
		}
		encoded[key] = data
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key, data := range encoded {
		mc.setLocked(key, data, expiration)
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	results := make(map[string]string, len(keys))
	for _, key := range keys {
		if item, ok := mc.lookupLocked(key); ok {
			results[key] = item.value
		}
	}
	return results, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.lookupLocked(key); ok {
		return false, nil
	}
	mc.setLocked(key, "locked", ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, at := range mc.access {
		if oldestKey == "" || at.Before(oldest) {
			oldest = at
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.stop:
			return
		case now := <-mc.ticker.C:
			mc.mu.Lock()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
					delete(mc.access, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		mc.ticker.Stop()
		close(mc.stop)
	})
	return nil
}

var _ Service = (*MemoryCache)(nil)
