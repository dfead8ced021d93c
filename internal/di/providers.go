package di

import (
	"fmt"

	"TCAVis/internal/domain/repository"
	domsvc "TCAVis/internal/domain/service"
	"TCAVis/internal/handler/api"
	internalrepo "TCAVis/internal/repository"
	"TCAVis/internal/service/ratelimit"
	"TCAVis/internal/services/render"
	"TCAVis/internal/usecase"
	"TCAVis/pkg/cache"
	"TCAVis/pkg/config"
	xhttp "TCAVis/pkg/http"
	pkgkafka "TCAVis/pkg/kafka"
	"TCAVis/pkg/logger"
	"TCAVis/pkg/metrics"
	"TCAVis/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout", Service: "tcavis"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache creates the artifact cache backend selected by store.backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	st := cfg.Store
	if st.Backend == "memory" {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(st.MemorySize),
			cache.WithMemoryDefaultTTL(st.TTL),
		), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(st.Redis.Host, st.Redis.Port),
		cache.WithRedisAuth(st.Redis.Password, st.Redis.DB),
		cache.WithRedisPool(st.Redis.PoolSize),
		cache.WithRedisPrefix(st.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if st.Backend == "layered" {
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(st.MemorySize)), nil
	}
	return rc, nil
}

// ProvideArtifactStore creates the artifact repository.
func ProvideArtifactStore(c cache.Service) repository.ArtifactStore {
	return internalrepo.NewCacheArtifactStore(c)
}

// ProvidePublisher publishes rendered manifests to Kafka, or drops them when Kafka is disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RenderedTopic == "" {
		return internalrepo.NoopPublisher{}, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(p.Compression),
		pkgkafka.WithDelivery(p.RequiredAcks, p.MaxAttempts),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.RenderedTopic), nil
}

func lineStyles(cfg *config.Config) map[string]string {
	if len(cfg.Render.LineStyles) > 0 {
		return cfg.Render.LineStyles
	}
	return render.DefaultLineStyles
}

// ProvideRenderer creates the ECharts/Excel chart renderer.
func ProvideRenderer(cfg *config.Config) domsvc.ChartRenderer {
	return render.NewEChartsRenderer(
		render.WithTheme(cfg.Render.Theme),
		render.WithLineStyles(lineStyles(cfg)),
	)
}

// ProvideDispatcher creates the render dispatcher.
func ProvideDispatcher(cfg *config.Config, renderer domsvc.ChartRenderer, m repository.Metrics, l *logger.Logger) *usecase.Dispatcher {
	return usecase.NewDispatcher(renderer,
		usecase.WithLineStyles(lineStyles(cfg)),
		usecase.WithDispatcherMetrics(m),
		usecase.WithDispatcherLogger(l),
	)
}

// ProvideResultsService creates the results use case.
func ProvideResultsService(
	cfg *config.Config,
	dispatcher *usecase.Dispatcher,
	store repository.ArtifactStore,
	pub repository.Publisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.ResultsService {
	return usecase.NewResultsService(dispatcher, store, pub,
		usecase.WithDefaultPreamble(cfg.Render.Preamble),
		usecase.WithDefaultChartSize(cfg.Render.Width, cfg.Render.Height),
		usecase.WithResultsTTL(cfg.Store.TTL),
		usecase.WithRenderTimeout(cfg.Render.Timeout),
		usecase.WithResultsMetrics(m),
		usecase.WithResultsLogger(l),
	)
}

// ProvideLimiter creates the ingest rate limiter, or nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideResultsHandler creates the HTTP handler.
func ProvideResultsHandler(l *logger.Logger, svc *usecase.ResultsService, limiter *ratelimit.Limiter) *api.ResultsEchoHandler {
	return api.NewResultsEchoHandler(l, svc, limiter)
}

// ProvideHTTPServer creates the Echo server with every route registered.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, h *api.ResultsEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		xhttp.WithBodyLimit(cfg.Server.BodyLimit),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetrics(nil, nil, metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates a consumer of the results topic, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, svc *usecase.ResultsService, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ResultsTopic == "" {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaResultsHandler(cfg.Kafka.ResultsTopic, svc, m, l))
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook{}, consumerMetricsHook(m)))
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	store repository.ArtifactStore,
	pub repository.Publisher,
) *server.App {
	return server.New(l, httpServer, consumer, cfg.Server.ShutdownTimeout, pub, store)
}
