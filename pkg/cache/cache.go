package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines byte-oriented cache operations.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// SetJSON marshals value and stores it under key.
func SetJSON(ctx context.Context, c Service, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, expiration)
}

// GetJSON retrieves key and unmarshals it into a T.
func GetJSON[T any](ctx context.Context, c Service, key string) (T, error) {
	var obj T
	data, err := c.Get(ctx, key)
	if err != nil {
		return obj, err
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return obj, err
	}
	return obj, nil
}
