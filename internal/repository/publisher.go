package repository

import (
	"context"
	"strconv"

	"TCAVis/internal/domain/models"
	domrepo "TCAVis/internal/domain/repository"
	pkgkafka "TCAVis/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

const renderedEventType = "rendered_manifest"

// KafkaPublisher announces finished renders on a topic, keyed by result id so every render of
// one result lands on the same partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishRendered sends the manifest as JSON. Headers let consumers filter without decoding it.
func (p *KafkaPublisher) PublishRendered(ctx context.Context, m *models.RenderedManifest) error {
	return p.producer.Publish(ctx, p.topic, []byte(m.ID), m, renderedHeaders(m)...)
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

func renderedHeaders(m *models.RenderedManifest) []kafka.Header {
	return []kafka.Header{
		pkgkafka.Header("type", renderedEventType),
		pkgkafka.Header("result_id", m.ID),
		pkgkafka.Header("failures", strconv.Itoa(len(m.Failures))),
	}
}

// NoopPublisher drops notifications when no rendered topic is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishRendered(context.Context, *models.RenderedManifest) error { return nil }
func (NoopPublisher) Close() error                                                    { return nil }
