package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer publishes keyed messages. The hash balancer keeps every message of one key on one partition.
type Producer struct {
	writer      *kafka.Writer
	compression string
	metrics     *producerMetrics
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer: no brokers configured")
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  parseCompression(cfg.Compression),
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
		},
		compression: cfg.Compression,
		metrics:     sharedProducerMetrics(),
	}, nil
}

// Header builds a message header.
func Header(key, value string) kafka.Header {
	return kafka.Header{Key: key, Value: []byte(value)}
}

// Publish sends value to topic. []byte and string values go out as-is, anything else as JSON.
// A trace id found in ctx is forwarded as the trace_id header.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error {
	start := time.Now()
	payload, err := encodeValue(value)
	if err != nil {
		return err
	}
	if id := TraceIDFrom(ctx); id != "" && !hasHeader(headers, traceHeader) {
		headers = append(headers, Header(traceHeader, id))
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   payload,
		Headers: headers,
		Time:    start,
	})
	p.metrics.observe(topic, p.compression, len(payload), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func hasHeader(headers []kafka.Header, key string) bool {
	for _, h := range headers {
		if h.Key == key {
			return true
		}
	}
	return false
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

func parseCompression(name string) kafka.Compression {
	switch name {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	}
	return kafka.Gzip
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var sharedProducerMetrics = sync.OnceValue(func() *producerMetrics {
	return &producerMetrics{
		messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tcavis_kafka_producer_messages_total",
			Help: "Messages published to Kafka by result.",
		}, []string{"topic", "compression", "result"}),
		bytes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tcavis_kafka_producer_bytes_total",
			Help: "Payload bytes published to Kafka.",
		}, []string{"topic"}),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tcavis_kafka_producer_publish_seconds",
			Help:    "Time spent in a single publish.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
})

func (m *producerMetrics) observe(topic, compression string, size int, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, compression, result).Inc()
	m.bytes.WithLabelValues(topic).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(took.Seconds())
}
