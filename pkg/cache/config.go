package cache

import (
	"net"
	"strconv"
	"time"
)

// RedisConfig describes the Redis backend.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	Prefix       string
}

type RedisOption func(*RedisConfig)

// WithRedisAddr sets the server address from host and port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		if host != "" && port > 0 {
			c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		}
	}
}

// WithRedisAuth selects the database and the password used to reach it.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sizes the connection pool; idle connections default to half the pool.
func WithRedisPool(size int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
			c.MinIdleConns = size / 2
		}
	}
}

// WithRedisPrefix namespaces every key, e.g. "tcavis:manifest:<id>".
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryConfig describes an in-process LRU cache, standalone or as the L1 of a LayeredCache.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	DefaultTTL      time.Duration
}

type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize bounds the number of entries before LRU eviction.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval > 0 {
			c.CleanupInterval = interval
		}
	}
}

// WithMemoryDefaultTTL sets the lifetime of entries stored without an expiration.
func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if ttl > 0 {
			c.DefaultTTL = ttl
		}
	}
}

// LayeredConfig sizes the memory layer in front of a remote cache.
type LayeredConfig struct {
	MemoryMaxSize int
	MemoryTTL     time.Duration
}

type LayeredOption func(*LayeredConfig)

func WithLayeredMemorySize(size int) LayeredOption {
	return func(c *LayeredConfig) {
		if size > 0 {
			c.MemoryMaxSize = size
		}
	}
}

// WithLayeredMemoryTTL caps how long an entry stays in L1 so other replicas' writes show up.
func WithLayeredMemoryTTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if ttl > 0 {
			c.MemoryTTL = ttl
		}
	}
}
