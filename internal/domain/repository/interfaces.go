package repository

import (
	"context"

	"github.com/lotoos0/memex-sim/internal/domain/models"
)

// Journal is the snapshot persistence boundary: an opaque key-value blob
// store for the three ledgers. Saves are best-effort; a failing journal
// never interrupts the simulation.
type Journal interface {
	SaveSnapshot(ctx context.Context, orders []models.Order, trades []models.Trade, history []models.PositionHistory) error
	Load(ctx context.Context) (orders []models.Order, trades []models.Trade, history []models.PositionHistory, err error)
	Close() error
}

// TickArchive stores simulated ticks for offline analysis. Appends are
// buffered; Flush forces a write of the current batch.
type TickArchive interface {
	Append(ctx context.Context, symbol string, t models.Tick) error
	Flush(ctx context.Context) error
	Close() error
}

// Publisher pushes per-tick envelopes to an external message bus.
type Publisher interface {
	Publish(ctx context.Context, env *models.TickEnvelope) error
	Close() error
}

// Broadcaster fans the per-tick envelope out to live subscribers.
type Broadcaster interface {
	Broadcast(env *models.TickEnvelope)
}

// Metrics records operational counters for the simulation.
type Metrics interface {
	RecordTick(symbol string, price, volume float64)
	RecordTickDuration(seconds float64)
	RecordOrder(status string)
	RecordFill(side string)
	RecordRejection(kind string)
	RecordError(kind string)
	RecordActiveEvents(n int)
}
