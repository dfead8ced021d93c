package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisOptions(t *testing.T) {
	var c RedisConfig
	for _, opt := range []RedisOption{
		WithRedisAddr("::1", 6380),
		WithRedisAuth("secret", 2),
		WithRedisPool(8),
		WithRedisPrefix("tcavis-test"),
	} {
		opt(&c)
	}

	assert.Equal(t, RedisConfig{
		Addr:         "[::1]:6380",
		Password:     "secret",
		DB:           2,
		PoolSize:     8,
		MinIdleConns: 4,
		Prefix:       "tcavis-test",
	}, c)
}

func TestMemoryOptionsIgnoreInvalid(t *testing.T) {
	c := MemoryConfig{MaxSize: 10, CleanupInterval: time.Minute, DefaultTTL: time.Hour}
	WithMemoryMaxSize(0)(&c)
	WithMemoryCleanup(-time.Second)(&c)
	WithMemoryDefaultTTL(0)(&c)

	assert.Equal(t, MemoryConfig{MaxSize: 10, CleanupInterval: time.Minute, DefaultTTL: time.Hour}, c)
}
