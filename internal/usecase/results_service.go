package usecase

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"TCAVis/internal/domain/models"
	domrepo "TCAVis/internal/domain/repository"
	svccache "TCAVis/internal/service/cache"
	"TCAVis/pkg/logger"
	"TCAVis/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ResultsService ingests raw TCA result sets, renders them and keeps the artifacts retrievable by id.
type ResultsService struct {
	dispatcher *Dispatcher
	store      domrepo.ArtifactStore
	publisher  domrepo.Publisher
	registry   *svccache.TTLCache[*TCAResults]
	metrics    domrepo.Metrics
	logger     *logger.Logger

	preamble      string
	width, height int
	ttl           time.Duration
	renderTimeout time.Duration
	persistLimit  int
}

// ResultsServiceOption configures ResultsService.
type ResultsServiceOption func(*ResultsService)

// WithDefaultPreamble sets the preamble used when a request carries none.
func WithDefaultPreamble(text string) ResultsServiceOption {
	return func(s *ResultsService) {
		if text != "" {
			s.preamble = text
		}
	}
}

// WithDefaultChartSize sets the chart size of every ingested result.
func WithDefaultChartSize(width, height int) ResultsServiceOption {
	return func(s *ResultsService) {
		s.width, s.height = width, height
	}
}

// WithResultsTTL sets how long results, artifacts and manifests are kept.
func WithResultsTTL(ttl time.Duration) ResultsServiceOption {
	return func(s *ResultsService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRenderTimeout bounds a single render call.
func WithRenderTimeout(d time.Duration) ResultsServiceOption {
	return func(s *ResultsService) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

func WithResultsMetrics(m domrepo.Metrics) ResultsServiceOption {
	return func(s *ResultsService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithResultsLogger(l *logger.Logger) ResultsServiceOption {
	return func(s *ResultsService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewResultsService(dispatcher *Dispatcher, store domrepo.ArtifactStore, publisher domrepo.Publisher, opts ...ResultsServiceOption) *ResultsService {
	s := &ResultsService{
		dispatcher:    dispatcher,
		store:         store,
		publisher:     publisher,
		registry:      svccache.NewTTLCache[*TCAResults](),
		metrics:       metrics.Noop{},
		logger:        logger.Nop(),
		preamble:      DefaultPreamble,
		width:         DefaultChartWidth,
		height:        DefaultChartHeight,
		ttl:           24 * time.Hour,
		renderTimeout: 30 * time.Second,
		persistLimit:  4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest classifies and renders req, persists the artifacts and returns the manifest.
// Invalid requests fail with models.ErrConfiguration or models.ErrInvalidPayload.
func (s *ResultsService) Ingest(ctx context.Context, req *models.ResultSetRequest) (*models.RenderedManifest, error) {
	start := time.Now()
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	raw, err := req.ToRaw()
	if err != nil {
		s.metrics.RecordError("ingest_decode")
		return nil, err
	}

	preamble := s.preamble
	if req.Preamble != "" {
		preamble = req.Preamble
	}
	res, err := NewTCAResults(raw, req.RequestContext(),
		WithResultID(id),
		WithPreamble(preamble),
		WithChartSize(s.width, s.height),
	)
	if err != nil {
		s.metrics.RecordError("ingest_classify")
		return nil, err
	}

	cr := res.Classified()
	for _, c := range models.FrameCategories {
		s.metrics.RecordClassified(string(c), len(cr.Frames(c)))
	}
	s.metrics.RecordClassified(string(models.CategoryCandlestick), len(cr.Candlesticks()))
	if dropped := cr.Dropped(); len(dropped) > 0 {
		s.metrics.RecordDropped(len(dropped))
		s.logger.Debug("unclassified datasets dropped",
			logger.String("id", id),
			logger.Strings("keys", dropped),
		)
	}

	if n := s.registry.Purge(); n > 0 {
		s.logger.Debug("expired results evicted", logger.Int("count", n))
	}
	s.registry.Set(id, res, s.ttl)

	m, err := s.render(ctx, res, false)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLatency("ingest_seconds", time.Since(start).Seconds())
	s.logger.Info("result set rendered",
		logger.String("id", id),
		logger.Int("datasets", len(raw)),
		logger.Int("failures", len(m.Failures)),
		logger.Duration("took", time.Since(start)),
	)
	return m, nil
}

// Rerender renders a registered result again. Without force the stored manifest is returned
// when charts were already rendered.
func (s *ResultsService) Rerender(ctx context.Context, id string, force bool) (*models.RenderedManifest, error) {
	res, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("result %s: %w", id, domrepo.ErrNotFound)
	}
	if !force && res.Rendered() {
		if m, err := s.store.LoadManifest(ctx, id); err == nil {
			return m, nil
		}
	}
	return s.render(ctx, res, force)
}

// Manifest returns the manifest of the last render of id.
func (s *ResultsService) Manifest(ctx context.Context, id string) (*models.RenderedManifest, error) {
	return s.store.LoadManifest(ctx, id)
}

// Artifact returns the serialized artifact: HTML for charts, XLSX for tables.
func (s *ResultsService) Artifact(ctx context.Context, id string, category models.Category, key string) ([]byte, error) {
	return s.store.LoadArtifact(ctx, id, category, key)
}

// Result returns the in-process holder of id while it is registered.
func (s *ResultsService) Result(id string) (*TCAResults, bool) {
	return s.registry.Get(id)
}

func (s *ResultsService) render(ctx context.Context, res *TCAResults, force bool) (*models.RenderedManifest, error) {
	rctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	arts, err := s.dispatcher.Render(rctx, res, force)
	if err != nil {
		s.metrics.RecordError("render")
		return nil, err
	}
	_, renderedAt, _ := res.Artifacts()

	persisted, failures, err := s.persist(rctx, res.ID(), arts)
	if err != nil {
		s.metrics.RecordError("store")
		return nil, err
	}

	m := buildManifest(res, persisted, append(manifestFailures(arts.Failures), failures...), renderedAt)
	if err := s.store.SaveManifest(ctx, m, s.ttl); err != nil {
		s.metrics.RecordError("store")
		return nil, err
	}

	if err := s.publisher.PublishRendered(ctx, m); err != nil {
		s.metrics.RecordError("publish")
		s.logger.Warn("publish rendered manifest", logger.String("id", m.ID), logger.Error(err))
	}
	return m, nil
}

// persist serializes and stores every artifact. An artifact that fails to serialize is reported
// as a failure; a store error aborts.
func (s *ResultsService) persist(ctx context.Context, id string, arts *models.RenderedArtifacts) (map[models.Category][]string, []models.ManifestFailure, error) {
	type outcome struct {
		category models.Category
		key      string
		err      error
	}
	var jobs []outcome
	for _, c := range models.RenderableCategories {
		for _, k := range slices.Sorted(maps.Keys(arts.Collection(c))) {
			jobs = append(jobs, outcome{category: c, key: k})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.persistLimit)
	for i := range jobs {
		job := &jobs[i]
		art := arts.Collection(job.category)[job.key]
		g.Go(func() error {
			var buf bytes.Buffer
			if err := art.Render(&buf); err != nil {
				job.err = err
				return nil
			}
			return s.store.SaveArtifact(gctx, id, job.category, job.key, buf.Bytes(), s.ttl)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	persisted := make(map[models.Category][]string, len(models.RenderableCategories))
	var failures []models.ManifestFailure
	for _, job := range jobs {
		if job.err != nil {
			failures = append(failures, models.ManifestFailure{Category: job.category, Key: job.key, Error: job.err.Error()})
			s.metrics.RecordRender(string(job.category), "serialize_failed")
			continue
		}
		persisted[job.category] = append(persisted[job.category], job.key)
	}
	return persisted, failures, nil
}

func manifestFailures(errs []*models.RenderError) []models.ManifestFailure {
	out := make([]models.ManifestFailure, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.ManifestFailure{Category: e.Category, Key: e.Key, Error: e.Err.Error()})
	}
	return out
}

func buildManifest(res *TCAResults, persisted map[models.Category][]string, failures []models.ManifestFailure, renderedAt time.Time) *models.RenderedManifest {
	cr := res.Classified()
	classified := make(map[models.Category][]string, len(models.FrameCategories)+1)
	for _, c := range models.FrameCategories {
		if keys := cr.Keys(c); len(keys) > 0 {
			classified[c] = keys
		}
	}
	if figs := cr.Candlesticks(); len(figs) > 0 {
		classified[models.CategoryCandlestick] = slices.Sorted(maps.Keys(figs))
	}
	slices.SortFunc(failures, func(a, b models.ManifestFailure) int {
		return cmp.Or(cmpCategory(a.Category, b.Category), strings.Compare(a.Key, b.Key))
	})
	return &models.RenderedManifest{
		ID:         res.ID(),
		Tickers:    cr.Tickers(),
		Preamble:   res.Preamble(),
		Classified: classified,
		Artifacts:  persisted,
		Failures:   failures,
		Dropped:    cr.Dropped(),
		RenderedAt: renderedAt,
	}
}

func cmpCategory(a, b models.Category) int {
	return slices.Index(models.RenderableCategories, a) - slices.Index(models.RenderableCategories, b)
}

// IsClientError reports whether err was caused by the submitted result set.
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrConfiguration) || errors.Is(err, models.ErrInvalidPayload)
}
