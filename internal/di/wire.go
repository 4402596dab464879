//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/lotoos0/memex-sim/pkg/config"
	"github.com/lotoos0/memex-sim/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Egress sinks
		ProvideJournal,
		ProvideTickArchive,
		ProvidePublisher,
		ProvideHub,

		// Pipeline and handlers
		ProvideSimulation,
		ProvideTradingHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
