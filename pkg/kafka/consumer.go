package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"TCAVis/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles the payloads of one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer fetches from one reader per topic and hands messages to a fixed set of workers.
// A partition always maps to the same worker, so its messages are handled in offset order.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *logger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	hook     ConsumerHook
	dlq      *kafka.Writer
	metrics  *consumerMetrics

	shards []chan *message
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type message struct {
	topic string
	km    kafka.Message
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "tcavis",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
		Logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: no brokers configured")
	}

	c := &Consumer{
		cfg:      cfg,
		log:      cfg.Logger,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		hook:     NoopHook{},
		metrics:  sharedConsumerMetrics(),
		shards:   make([]chan *message, cfg.WorkerCount),
	}
	for i := range c.shards {
		c.shards[i] = make(chan *message, cfg.BufferSize)
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.Hash{}}
	}
	return c, nil
}

// RegisterHandler adds the handler of a topic. The first registration of a topic wins.
// It must be called before Start.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	topic := h.Topic()
	if _, dup := c.handlers[topic]; dup {
		c.log.Warn("kafka handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = h
}

func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start opens the readers and launches the fetch loops and workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for _, shard := range c.shards {
		c.wg.Add(1)
		go c.work(ctx, shard)
	}
	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
		c.readers[topic] = r
		c.wg.Add(1)
		go c.fetch(ctx, topic, r)
	}

	c.log.Info("kafka consumer started",
		logger.String("group", c.cfg.GroupID),
		logger.Int("workers", len(c.shards)),
		logger.Int("topics", len(c.readers)),
	)
	return nil
}

// Stop cancels fetching, waits for in-flight messages until ctx expires and closes the readers.
// Messages left in the shard queues are not committed and will be redelivered.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close kafka reader", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("close kafka dlq writer", logger.Error(cerr))
			}
		}
		if err == nil {
			c.log.Info("kafka consumer stopped")
		}
	})
	return err
}

func (c *Consumer) fetch(ctx context.Context, topic string, r *kafka.Reader) {
	defer c.wg.Done()

	failures := 0
	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			c.log.Warn("kafka fetch failed", logger.String("topic", topic), logger.Int("failures", failures), logger.Error(err))
			if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, failures)) {
				return
			}
			continue
		}
		failures = 0

		shard := c.shards[shardFor(topic, km.Partition, len(c.shards))]
		select {
		case shard <- &message{topic: topic, km: km}:
			c.metrics.queued.WithLabelValues(topic).Inc()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context, in <-chan *message) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-in:
			c.metrics.queued.WithLabelValues(msg.topic).Dec()
			c.process(ctx, msg)
		}
	}
}

// process runs the handler with retries. The offset is committed on success, or on failure
// once the message is parked on the dead letter topic.
func (c *Consumer) process(ctx context.Context, msg *message) {
	h, ok := c.handlers[msg.topic]
	if !ok {
		return
	}
	start := time.Now()

	attempts, err := c.handleWithRetry(ctx, h, msg)
	outcome := "ok"
	switch {
	case err == nil && attempts > 1:
		outcome = "retried"
	case err != nil:
		c.hook.OnError(ctx, msg.topic, msg.km, msg.km.Value, err)
		c.log.Error("kafka message failed",
			logger.String("topic", msg.topic),
			logger.Int("partition", msg.km.Partition),
			logger.String("offset", strconv.FormatInt(msg.km.Offset, 10)),
			logger.Int("attempts", attempts),
			logger.Error(err),
		)
		outcome = "failed"
		if c.deadLetter(msg, err) {
			outcome = "dead_lettered"
		}
	}

	if outcome != "failed" {
		c.commit(msg)
	}
	c.metrics.handled.WithLabelValues(msg.topic, outcome).Inc()
	c.metrics.latency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

// handleWithRetry calls the handler up to RetryMax+1 times. Handlers get a context that outlives
// Stop so a started render can finish; ctx only interrupts the backoff.
func (c *Consumer) handleWithRetry(ctx context.Context, h MessageHandler, msg *message) (attempts int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kafka handler for %s panicked: %v", msg.topic, r)
		}
	}()

	for {
		attempts++
		hctx, km, data, rejected := c.hook.BeforeHandle(context.WithoutCancel(ctx), msg.topic, msg.km, msg.km.Value)
		if rejected != nil {
			return attempts, rejected
		}
		err = h.Handle(hctx, data)
		c.hook.AfterHandle(hctx, msg.topic, km, data, err)
		if err == nil || attempts > c.cfg.RetryMax {
			return attempts, err
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)) {
			return attempts, err
		}
	}
}

func (c *Consumer) deadLetter(msg *message, cause error) bool {
	if c.dlq == nil {
		return false
	}
	headers := append([]kafka.Header{
		Header("source_topic", msg.topic),
		Header("source_partition", strconv.Itoa(msg.km.Partition)),
		Header("source_offset", strconv.FormatInt(msg.km.Offset, 10)),
		Header("error", cause.Error()),
	}, msg.km.Headers...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.dlq.WriteMessages(ctx, kafka.Message{Key: msg.km.Key, Value: msg.km.Value, Headers: headers}); err != nil {
		c.log.Error("kafka dlq write failed", logger.String("dlq", c.cfg.DLQTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(msg *message) {
	r := c.readers[msg.topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka commit failed",
		logger.String("topic", msg.topic),
		logger.String("offset", strconv.FormatInt(msg.km.Offset, 10)),
		logger.Error(err),
	)
}

// shardFor maps a topic partition onto one of n workers.
func shardFor(topic string, partition, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return int((h.Sum32() + uint32(partition)) % uint32(n))
}

// backoffWithJitter doubles lo per attempt up to hi and subtracts up to half of it at random.
func backoffWithJitter(lo, hi time.Duration, attempt int) time.Duration {
	if lo <= 0 {
		lo = 50 * time.Millisecond
	}
	if hi < lo {
		hi = lo
	}
	attempt = max(attempt, 1)
	d := hi
	if attempt < 32 {
		if exp := lo << (attempt - 1); exp > 0 && exp < hi {
			d = exp
		}
	}
	return d - rand.N(d/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type consumerMetrics struct {
	queued  *prometheus.GaugeVec
	handled *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var sharedConsumerMetrics = sync.OnceValue(func() *consumerMetrics {
	return &consumerMetrics{
		queued: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tcavis_kafka_consumer_queue_depth",
			Help: "Fetched messages waiting for a worker.",
		}, []string{"topic"}),
		handled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tcavis_kafka_consumer_messages_total",
			Help: "Consumed messages by outcome.",
		}, []string{"topic", "outcome"}),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name: "tcavis_kafka_consumer_handle_seconds",
			Help: "Handling time per message, retries included.",
		}, []string{"topic"}),
	}
})
