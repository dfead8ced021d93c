package repository

import (
	"context"
	"errors"
	"time"

	"TCAVis/internal/domain/models"
)

// ErrNotFound is returned when a result or artifact is not stored.
var ErrNotFound = errors.New("not found")

// ArtifactStore keeps rendered artifact bytes and manifests for later retrieval.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, id string, category models.Category, key string, body []byte, ttl time.Duration) error
	LoadArtifact(ctx context.Context, id string, category models.Category, key string) ([]byte, error)
	SaveManifest(ctx context.Context, m *models.RenderedManifest, ttl time.Duration) error
	LoadManifest(ctx context.Context, id string) (*models.RenderedManifest, error)
	Close() error
}

// Publisher notifies downstream consumers that a result set has been rendered.
type Publisher interface {
	PublishRendered(ctx context.Context, m *models.RenderedManifest) error
	Close() error
}

type Metrics interface {
	RecordClassified(category string, n int)
	RecordDropped(n int)
	RecordRender(category, status string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
