package kafka

import (
	"time"

	"TCAVis/pkg/logger"
)

// ProducerConfig tunes the writer that publishes rendered manifests.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int // -1 waits for all in-sync replicas
	MaxAttempts  int
	Compression  string // gzip, snappy, lz4 or zstd
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchTimeout time.Duration
}

type ProducerOption func(*ProducerConfig)

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		if codec != "" {
			c.Compression = codec
		}
	}
}

// WithDelivery sets the acknowledgement level and how often the writer retries a batch.
func WithDelivery(requiredAcks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = requiredAcks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithBatching trades latency for throughput; manifests are small so the default is no batching.
func WithBatching(size int, timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = size
		c.BatchTimeout = timeout
	}
}

// ConsumerConfig tunes the readers and worker pool that ingest result sets.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string // empty disables dead-lettering
	MinBytes    int
	MaxBytes    int
	Logger      *logger.Logger
}

type ConsumerOption func(*ConsumerConfig)

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(id string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if id != "" {
			c.GroupID = id
		}
	}
}

// WithConsumerWorkers sets the number of handler goroutines shared by all topics.
func WithConsumerWorkers(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.WorkerCount = n
		}
	}
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// WithConsumerRetry sets how many times a failed message is retried and the backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerLogger(l *logger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}
