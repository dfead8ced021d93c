package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is a size-bounded LRU cache with per-entry expiry. Rendered artifacts are
// served from here when Redis is disabled.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
	maxSize    int
	defaultTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
		DefaultTTL:      7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries:    make(map[string]*list.Element, cfg.MaxSize),
		order:      list.New(),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		stop:       make(chan struct{}),
	}
	go mc.janitor(cfg.CleanupInterval)
	return mc
}

// Set stores a copy of value. A non-positive ttl uses the default TTL.
func (mc *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	entry := &memoryEntry{
		key:      key,
		value:    append([]byte(nil), value...),
		expireAt: time.Now().Add(ttl),
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.entries[key]; ok {
		el.Value = entry
		mc.order.MoveToFront(el)
		return nil
	}
	for mc.order.Len() >= mc.maxSize {
		mc.removeElement(mc.order.Back())
	}
	mc.entries[key] = mc.order.PushFront(entry)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		mc.removeElement(el)
		return nil, ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	return entry.value, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if el, ok := mc.entries[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	el, ok := mc.entries[key]
	return ok && !el.Value.(*memoryEntry).expired(time.Now()), nil
}

// Len counts stored entries, expired ones included until the janitor runs.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.order.Remove(el)
	delete(mc.entries, el.Value.(*memoryEntry).key)
}

func (mc *MemoryCache) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case now := <-t.C:
			mc.mu.Lock()
			for el := mc.order.Back(); el != nil; {
				prev := el.Prev()
				if el.Value.(*memoryEntry).expired(now) {
					mc.removeElement(el)
				}
				el = prev
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the janitor goroutine.
func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}
