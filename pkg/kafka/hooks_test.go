package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{Header("type", "result_set"), Header("trace_id", "abc-123")}}

	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "tca.results", km, nil)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", TraceIDFrom(ctx))
	_, ok := StartTimeFrom(ctx)
	assert.True(t, ok)

	assert.Empty(t, TraceIDFrom(context.Background()))
	assert.Empty(t, ExtractTraceID(kafka.Message{}))
}

func TestHookChainOrder(t *testing.T) {
	var order []string
	hook := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, b []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before "+name)
				return ctx, km, append(b, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after "+name)
			},
		}
	}
	chain := NewHookChain(hook("a"), nil, hook("b"))

	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	require.NoError(t, err)
	chain.AfterHandle(ctx, "t", km, data, nil)

	assert.Equal(t, "ab", string(data))
	assert.Equal(t, []string{"before a", "before b", "after b", "after a"}, order)
}

func TestHookChainContainsPanics(t *testing.T) {
	chain := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("hook bug")
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) { panic("again") },
	})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	assert.ErrorContains(t, err, "consumer hook panicked")
	assert.NotPanics(t, func() {
		chain.OnError(context.Background(), "t", kafka.Message{}, nil, errors.New("x"))
	})
}
