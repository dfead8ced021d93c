package ratelimit

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys have separate buckets")

	now = now.Add(500 * time.Millisecond)
	assert.False(t, l.Allow("10.0.0.1"))

	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("10.0.0.1"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "tokens are capped at capacity")
}

func TestLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		l.Allow("10.0.1." + strconv.Itoa(i))
	}
	assert.Equal(t, 50, l.Len())

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("10.0.0.9"))
	assert.Equal(t, 51, l.Len(), "no sweep before the interval")

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.Equal(t, 1, l.Len())
}

func TestLimiterKeepsDrainedBuckets(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 0.01)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("b"))

	now = now.Add(150 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))

	now = now.Add(60 * time.Second)
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.Allow("a"), "a partly refilled bucket survives the sweep")
}
