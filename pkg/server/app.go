package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "TCAVis/pkg/http"
	pkgkafka "TCAVis/pkg/kafka"
	applogger "TCAVis/pkg/logger"
)

// App owns the HTTP server, the optional results consumer and everything closed on shutdown.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	closers         []io.Closer
	shutdownTimeout time.Duration
}

// New creates a new App. consumer may be nil when Kafka ingest is disabled; closers are closed
// in order after the servers have stopped.
func New(log *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, shutdownTimeout time.Duration, closers ...io.Closer) *App {
	return &App{
		log:             log,
		httpServer:      httpServer,
		consumer:        consumer,
		closers:         closers,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts the application and blocks until ctx is done or an interrupt arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		if a.consumer != nil {
			_ = a.consumer.Stop(context.Background())
		}
		return err
	}

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		a.log.Error("http server stopped unexpectedly", applogger.Error(err))
		return errors.Join(err, a.shutdown())
	}
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	// stop consuming before the store and publisher go away
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
