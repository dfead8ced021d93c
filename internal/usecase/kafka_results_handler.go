package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"TCAVis/internal/domain/models"
	domrepo "TCAVis/internal/domain/repository"
	pkgkafka "TCAVis/pkg/kafka"
	"TCAVis/pkg/logger"

	"github.com/google/uuid"
)

// Ingester is the part of ResultsService the Kafka handler needs.
type Ingester interface {
	Ingest(ctx context.Context, req *models.ResultSetRequest) (*models.RenderedManifest, error)
}

// KafkaResultsHandler consumes raw result sets from Kafka and ingests them.
type KafkaResultsHandler struct {
	topic    string
	ingester Ingester
	metrics  domrepo.Metrics
	logger   *logger.Logger
}

func NewKafkaResultsHandler(topic string, ingester Ingester, metrics domrepo.Metrics, log *logger.Logger) *KafkaResultsHandler {
	return &KafkaResultsHandler{topic: topic, ingester: ingester, metrics: metrics, logger: log}
}

func (h *KafkaResultsHandler) Topic() string { return h.topic }

// kafkaResultIDSpace namespaces ids derived from message payloads.
var kafkaResultIDSpace = uuid.MustParse("6f1c2d0e-5b7a-4c43-9e3e-2a8d1f4b7c90")

// MessageResultID is the id given to a result set that arrives without one. It depends only on
// the payload, so retries and redeliveries of a message reuse the same result.
func MessageResultID(payload []byte) string {
	return uuid.NewSHA1(kafkaResultIDSpace, payload).String()
}

// Handle ingests one ResultSetRequest. Malformed messages are logged and acknowledged since
// retrying cannot fix them; other failures are returned so the consumer retries.
func (h *KafkaResultsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ResultSetRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.logger.Warn("skip malformed result set", logger.String("topic", h.topic), logger.Error(err))
		return nil
	}
	if req.ID == "" {
		req.ID = MessageResultID(b)
	}

	m, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		if IsClientError(err) {
			h.metrics.RecordError("consumer_invalid")
			h.logger.Warn("skip invalid result set",
				logger.String("id", req.ID),
				logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
				logger.Error(err),
			)
			return nil
		}
		return fmt.Errorf("ingest %s: %w", req.ID, err)
	}

	h.logger.Debug("result set ingested from kafka",
		logger.String("id", m.ID),
		logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaResultsHandler)(nil)
