package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcHandler struct {
	topic string
	calls atomic.Int32
	fn    func(context.Context, []byte) error
}

func (h *funcHandler) Topic() string { return h.topic }

func (h *funcHandler) Handle(ctx context.Context, b []byte) error {
	h.calls.Add(1)
	return h.fn(ctx, b)
}

func newTestConsumer(t *testing.T) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestConsumerStartRequiresHandlers(t *testing.T) {
	assert.Error(t, newTestConsumer(t).Start())
}

func TestHandleWithRetry(t *testing.T) {
	msg := &message{topic: "tca.results", km: kafka.Message{Value: []byte("{}")}}

	t.Run("succeeds after retry", func(t *testing.T) {
		c := newTestConsumer(t)
		h := &funcHandler{topic: "tca.results"}
		h.fn = func(context.Context, []byte) error {
			if h.calls.Load() < 2 {
				return errors.New("transient")
			}
			return nil
		}

		attempts, err := c.handleWithRetry(context.Background(), h, msg)
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("gives up after retry max", func(t *testing.T) {
		c := newTestConsumer(t)
		h := &funcHandler{topic: "tca.results", fn: func(context.Context, []byte) error { return errors.New("down") }}

		attempts, err := c.handleWithRetry(context.Background(), h, msg)
		assert.EqualError(t, err, "down")
		assert.Equal(t, 3, attempts)
	})

	t.Run("recovers panics", func(t *testing.T) {
		c := newTestConsumer(t)
		h := &funcHandler{topic: "tca.results", fn: func(context.Context, []byte) error { panic("bad payload") }}

		_, err := c.handleWithRetry(context.Background(), h, msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad payload")
	})

	t.Run("hook rejects message", func(t *testing.T) {
		c := newTestConsumer(t)
		c.WithConsumerHook(HookFuncs{Before: func(ctx context.Context, _ string, km kafka.Message, b []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, b, errors.New("rejected")
		}})
		h := &funcHandler{topic: "tca.results", fn: func(context.Context, []byte) error { return nil }}

		_, err := c.handleWithRetry(context.Background(), h, msg)
		assert.EqualError(t, err, "rejected")
		assert.Zero(t, h.calls.Load())
	})
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestShardForIsStable(t *testing.T) {
	for p := 0; p < 16; p++ {
		s := shardFor("tca.results", p, 4)
		assert.Equal(t, s, shardFor("tca.results", p, 4))
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 4)
	}
	assert.NotEqual(t, shardFor("tca.results", 0, 4), shardFor("tca.results", 1, 4))
	assert.Zero(t, shardFor("tca.results", 7, 1))
}

func TestHandleWithRetryStopsOnCancel(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(5, time.Hour, time.Hour),
	)
	require.NoError(t, err)
	h := &funcHandler{topic: "tca.results", fn: func(context.Context, []byte) error { return errors.New("down") }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err := c.handleWithRetry(ctx, h, &message{topic: "tca.results"})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, attempts)
}

func TestHandlerContextSurvivesStop(t *testing.T) {
	c := newTestConsumer(t)
	h := &funcHandler{topic: "tca.results"}
	h.fn = func(ctx context.Context, _ []byte) error { return ctx.Err() }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.handleWithRetry(ctx, h, &message{topic: "tca.results"})
	assert.NoError(t, err)
}
