package di

import (
	"context"
	"time"

	"TCAVis/internal/domain/repository"
	pkgkafka "TCAVis/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

// consumerMetricsHook records end-to-end handling latency and failed attempts of consumed messages.
func consumerMetricsHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		After: func(ctx context.Context, _ string, _ kafka.Message, _ []byte, err error) {
			if start, ok := pkgkafka.StartTimeFrom(ctx); ok {
				m.RecordLatency("consume_seconds", time.Since(start).Seconds())
			}
			if err != nil {
				m.RecordError("consumer_attempt")
			}
		},
	}
}
