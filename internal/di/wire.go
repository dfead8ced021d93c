//go:build wireinject
// +build wireinject

package di

import (
	"TCAVis/pkg/config"
	"TCAVis/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideArtifactStore,
		ProvidePublisher,

		// Rendering and use cases
		ProvideRenderer,
		ProvideDispatcher,
		ProvideResultsService,

		// Transports
		ProvideLimiter,
		ProvideResultsHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
