package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"TCAVis/pkg/http/middleware"
	"TCAVis/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerOption func(*ServerConfig)

type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	SlowThreshold time.Duration
	BodyLimit     string
	CORS          bool
	MetricsPath   string
	Registerer    prometheus.Registerer
	Gatherer      prometheus.Gatherer
	Logger        *logger.Logger
}

// Server is the Echo instance serving the results API, health and metrics.
type Server struct {
	echo *echo.Echo
	cfg  *ServerConfig
	log  *logger.Logger
	errs chan error
}

// NewServer builds the middleware stack and registers the routes of every handler.
func NewServer(handlers []Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		SlowThreshold: 2 * time.Second,
		BodyLimit:     "32M",
		CORS:          true,
		MetricsPath:   "/metrics",
		Registerer:    prometheus.DefaultRegisterer,
		Gatherer:      prometheus.DefaultGatherer,
		Logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner, e.HidePort = true, true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(
		middleware.Recover(cfg.Logger),
		middleware.RequestLogging(cfg.Logger),
		middleware.Metrics(cfg.Registerer, cfg.Logger, cfg.SlowThreshold),
		echomw.RequestID(),
		echomw.BodyLimit(cfg.BodyLimit),
	)
	if cfg.CORS {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		}))
	}

	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
	if cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	return &Server{echo: e, cfg: cfg, log: cfg.Logger, errs: make(chan error, 1)}
}

// Start binds the listen address and serves in the background. Bind errors are returned here,
// serve errors are delivered on Errors.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", addr, err)
	}
	s.echo.Listener = ln

	go func() {
		s.log.Info("http server listening", logger.String("addr", ln.Addr().String()))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", logger.Error(err))
			s.errs <- err
		}
	}()
	return nil
}

// Errors delivers at most one fatal serve error.
func (s *Server) Errors() <-chan error { return s.errs }

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo { return s.echo }

func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		if host != "" {
			c.Host = host
		}
	}
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithTimeouts sets the read and write timeouts of the underlying http.Server.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(c *ServerConfig) {
		if read > 0 {
			c.ReadTimeout = read
		}
		if write > 0 {
			c.WriteTimeout = write
		}
	}
}

// WithSlowThreshold sets the latency above which a request is logged as slow. Zero disables it.
func WithSlowThreshold(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.SlowThreshold = d }
}

// WithBodyLimit caps request bodies, e.g. "32M".
func WithBodyLimit(limit string) ServerOption {
	return func(c *ServerConfig) {
		if limit != "" {
			c.BodyLimit = limit
		}
	}
}

func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.CORS = enabled }
}

// WithMetrics sets the registry HTTP metrics are recorded in and the path they are served on.
// An empty path disables the endpoint.
func WithMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer, path string) ServerOption {
	return func(c *ServerConfig) {
		if reg != nil {
			c.Registerer = reg
		}
		if gatherer != nil {
			c.Gatherer = gatherer
		}
		c.MetricsPath = path
	}
}

func WithLogger(l *logger.Logger) ServerOption {
	return func(c *ServerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}
