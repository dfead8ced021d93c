package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Every key shares the same capacity and refill rate.
// Buckets that have refilled completely are dropped, since a fresh bucket behaves the same.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	l := &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		now:        time.Now,
	}
	if refillPerSec > 0 {
		l.sweepEvery = max(time.Duration(capacity/refillPerSec*float64(time.Second)), time.Minute)
	}
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	b.tokens = l.refilled(b, now)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) refilled(b *bucket, now time.Time) float64 {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return b.tokens
	}
	return min(l.capacity, b.tokens+elapsed*l.refillRate)
}

// maybeSweep drops full buckets. Without refill a bucket never becomes full again, so nothing is swept.
func (l *Limiter) maybeSweep(now time.Time) {
	if l.sweepEvery <= 0 {
		return
	}
	if l.lastSweep.IsZero() {
		l.lastSweep = now
		return
	}
	if now.Sub(l.lastSweep) < l.sweepEvery {
		return
	}
	l.lastSweep = now
	for key, b := range l.m {
		if l.refilled(b, now) >= l.capacity {
			delete(l.m, key)
		}
	}
}
