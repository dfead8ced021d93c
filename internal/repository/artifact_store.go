package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TCAVis/internal/domain/models"
	domrepo "TCAVis/internal/domain/repository"
	"TCAVis/pkg/cache"
)

const (
	artifactPrefix = "artifact"
	manifestPrefix = "manifest"
)

// CacheArtifactStore implements ArtifactStore on top of a byte cache (memory, Redis or layered).
type CacheArtifactStore struct {
	cache cache.Service
}

// NewCacheArtifactStore creates an artifact store backed by c.
func NewCacheArtifactStore(c cache.Service) domrepo.ArtifactStore {
	return &CacheArtifactStore{cache: c}
}

func artifactKey(id string, category models.Category, key string) string {
	return cache.Key(artifactPrefix, id, category, key)
}

func (s *CacheArtifactStore) SaveArtifact(ctx context.Context, id string, category models.Category, key string, body []byte, ttl time.Duration) error {
	if err := s.cache.Set(ctx, artifactKey(id, category, key), body, ttl); err != nil {
		return fmt.Errorf("save artifact %s/%s: %w", category, key, err)
	}
	return nil
}

func (s *CacheArtifactStore) LoadArtifact(ctx context.Context, id string, category models.Category, key string) ([]byte, error) {
	body, err := s.cache.Get(ctx, artifactKey(id, category, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("artifact %s/%s of %s: %w", category, key, id, domrepo.ErrNotFound)
	}
	return body, err
}

func (s *CacheArtifactStore) SaveManifest(ctx context.Context, m *models.RenderedManifest, ttl time.Duration) error {
	if err := cache.SetJSON(ctx, s.cache, cache.Key(manifestPrefix, m.ID), m, ttl); err != nil {
		return fmt.Errorf("save manifest %s: %w", m.ID, err)
	}
	return nil
}

func (s *CacheArtifactStore) LoadManifest(ctx context.Context, id string) (*models.RenderedManifest, error) {
	m, err := cache.GetJSON[models.RenderedManifest](ctx, s.cache, cache.Key(manifestPrefix, id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("manifest %s: %w", id, domrepo.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *CacheArtifactStore) Close() error {
	return s.cache.Close()
}
