// Package server owns the application lifecycle: it starts the simulation
// clock and the HTTP server, waits for a shutdown signal and tears the
// egress sinks down in order.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	"github.com/lotoos0/memex-sim/internal/domain/repository"
	"github.com/lotoos0/memex-sim/internal/usecase"
	"github.com/lotoos0/memex-sim/pkg/config"
	xhttp "github.com/lotoos0/memex-sim/pkg/http"
	"github.com/lotoos0/memex-sim/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	sim        *usecase.Simulation
	handlers   []xhttp.Handler
	httpServer *xhttp.Server

	journal   repository.Journal
	archive   repository.TickArchive
	publisher repository.Publisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *logger.Logger,
	sim *usecase.Simulation,
	api xhttp.Handler,
	hub xhttp.Handler,
	journal repository.Journal,
	archive repository.TickArchive,
	publisher repository.Publisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		sim:       sim,
		handlers:  []xhttp.Handler{api, hub},
		journal:   journal,
		archive:   archive,
		publisher: publisher,
	}
}

// compositeHandler registers several route groups on one Echo instance.
type compositeHandler []xhttp.Handler

func (h compositeHandler) RegisterRoutes(e *echo.Echo) {
	for _, sub := range h {
		if sub != nil {
			sub.RegisterRoutes(e)
		}
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.sim.Hydrate(ctx)
	a.sim.Start()
	a.log.Info("simulation started",
		logger.String("symbol", a.cfg.Sim.Symbol),
		logger.Duration("tick_interval", a.cfg.Sim.TickInterval))

	a.httpServer = xhttp.NewServer(compositeHandler(a.handlers),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops the clock first so no new envelopes are produced, then
// drains and closes the sinks.
func (a *App) shutdown() error {
	a.sim.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", logger.Error(err))
		}
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Error("journal close error", logger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Flush(ctx); err != nil {
			a.log.Error("archive flush error", logger.Error(err))
		}
		if err := a.archive.Close(); err != nil {
			a.log.Error("archive close error", logger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Error("publisher close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
