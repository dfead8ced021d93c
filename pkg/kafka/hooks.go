package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes every message around the handler. An error from BeforeHandle rejects the
// message without calling the handler.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is embedded by hooks that only need some of the callbacks.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, []byte, error) {}

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error)
	After  func(context.Context, string, kafka.Message, []byte, error)
	Err    func(context.Context, string, kafka.Message, []byte, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	if h.Before == nil {
		return ctx, km, data, nil
	}
	return h.Before(ctx, topic, km, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.After != nil {
		h.After(ctx, topic, km, data, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.Err != nil {
		h.Err(ctx, topic, km, data, err)
	}
}

// HookChain runs BeforeHandle in order and AfterHandle in reverse order.
// A panic in BeforeHandle rejects the message; panics in the other callbacks are swallowed.
type HookChain struct {
	hooks []ConsumerHook
}

func NewHookChain(hooks ...ConsumerHook) *HookChain {
	filtered := make([]ConsumerHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &HookChain{hooks: filtered}
}

func (c *HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	for _, h := range c.hooks {
		nextCtx, nextMsg, nextData, err := safeBefore(h, ctx, topic, km, data)
		if err != nil {
			return ctx, km, data, err
		}
		ctx, km, data = nextCtx, nextMsg, nextData
	}
	return ctx, km, data, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		h := c.hooks[i]
		safely(func() { h.AfterHandle(ctx, topic, km, data, err) })
	}
}

func (c *HookChain) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for _, h := range c.hooks {
		safely(func() { h.OnError(ctx, topic, km, data, err) })
	}
}

func safeBefore(h ConsumerHook, ctx context.Context, topic string, km kafka.Message, data []byte) (outCtx context.Context, outMsg kafka.Message, outData []byte, err error) {
	outCtx, outMsg, outData = ctx, km, data
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consumer hook panicked: %v", r)
		}
	}()
	return h.BeforeHandle(ctx, topic, km, data)
}

func safely(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

const traceHeader = "trace_id"

type metaKey struct{}

// messageMeta is what TraceHook records about the message being handled.
type messageMeta struct {
	traceID string
	started time.Time
}

func metaFrom(ctx context.Context) (messageMeta, bool) {
	m, ok := ctx.Value(metaKey{}).(messageMeta)
	return m, ok
}

// TraceHook stores the trace_id header and the handling start time in the context.
type TraceHook struct {
	NoopHook
}

func (TraceHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	meta := messageMeta{traceID: ExtractTraceID(km), started: time.Now()}
	return context.WithValue(ctx, metaKey{}, meta), km, data, nil
}

// TraceIDFrom returns the trace id recorded by TraceHook, or "".
func TraceIDFrom(ctx context.Context) string {
	m, _ := metaFrom(ctx)
	return m.traceID
}

func StartTimeFrom(ctx context.Context) (time.Time, bool) {
	m, ok := metaFrom(ctx)
	return m.started, ok
}

// ExtractTraceID returns the first non-empty trace_id header.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == traceHeader && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}
