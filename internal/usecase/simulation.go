// Package usecase wires the simulation engines, the ledger and the egress
// sinks into one tick-driven pipeline.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	drepo "github.com/lotoos0/memex-sim/internal/domain/repository"
	"github.com/lotoos0/memex-sim/internal/engine"
	"github.com/lotoos0/memex-sim/internal/ledger"
	"github.com/lotoos0/memex-sim/pkg/config"
	"github.com/lotoos0/memex-sim/pkg/logger"
)

// Snapshot is the full externally visible state of the simulation.
type Snapshot struct {
	Symbol       string                   `json:"symbol"`
	Supply       float64                  `json:"supply"`
	LastPrice    float64                  `json:"lastPrice"`
	Regime       string                   `json:"regime"`
	Speed        float64                  `json:"speed"`
	TimeframeSec int                      `json:"tfSec"`
	Candles      []models.Candle          `json:"candles"`
	Orders       []models.Order           `json:"orders"`
	Position     *models.Position         `json:"position,omitempty"`
	Trades       []models.Trade           `json:"trades"`
	History      []models.PositionHistory `json:"history"`
	Realized     map[string]float64       `json:"realized"`
}

// Simulation owns all engine and ledger state behind a single mutex: the
// tick handler is the only writer, ingress operations serialize against it,
// and every observer receives copies.
type Simulation struct {
	mu  sync.Mutex
	cfg *config.Config
	log *logger.Logger

	rng     *engine.RNG
	events  *engine.EventEngine
	price   *engine.PriceEngine
	agg     *engine.CandleAggregator
	book    *ledger.Book
	limiter *ledger.RateLimiter
	clock   *engine.Clock

	ticks     []models.Tick // retained for timeframe replay
	lastPrice float64

	journal   drepo.Journal
	archive   drepo.TickArchive
	publisher drepo.Publisher
	broadcast drepo.Broadcaster
	metrics   drepo.Metrics
}

// New builds a simulation from validated config. The journal, archive,
// publisher and broadcaster are optional; nil disables the sink.
func New(
	cfg *config.Config,
	log *logger.Logger,
	journal drepo.Journal,
	archive drepo.TickArchive,
	publisher drepo.Publisher,
	broadcast drepo.Broadcaster,
	metrics drepo.Metrics,
) *Simulation {
	rng := engine.NewRNGFromString(cfg.Sim.Seed)
	s := &Simulation{
		cfg:       cfg,
		log:       log,
		rng:       rng,
		events:    engine.NewEventEngine(&cfg.Sim, rng),
		price:     engine.NewPriceEngine(&cfg.Sim, rng),
		agg:       engine.NewCandleAggregator(cfg.Sim.TimeframeSec, cfg.Sim.MaxCandles),
		book:      ledger.NewBook(cfg.Sim.Symbol, cfg.Risk.FeeBps, cfg.Risk.SlippagePct),
		limiter:   ledger.NewRateLimiter(cfg.Risk.MaxOrdersPerMinute),
		lastPrice: cfg.Sim.InitialPrice,
		journal:   journal,
		archive:   archive,
		publisher: publisher,
		broadcast: broadcast,
		metrics:   metrics,
	}
	s.clock = engine.NewClock(cfg.Sim.TickInterval, s.Step)
	s.clock.SetSpeed(cfg.Sim.Speed)
	return s
}

// Hydrate restores the persisted ledgers on startup. A failing journal is
// logged and ignored; the simulation starts empty.
func (s *Simulation) Hydrate(ctx context.Context) {
	if s.journal == nil {
		return
	}
	orders, trades, history, err := s.journal.Load(ctx)
	if err != nil {
		s.log.Warn("journal load failed, starting empty", logger.Error(err))
		if s.metrics != nil {
			s.metrics.RecordError("journal_load")
		}
		return
	}
	s.mu.Lock()
	s.book.Hydrate(orders, trades, history)
	s.mu.Unlock()
	s.log.Info("ledgers hydrated",
		logger.Int("orders", len(orders)),
		logger.Int("trades", len(trades)),
		logger.Int("history", len(history)))
}

// Start begins ticking. Idempotent.
func (s *Simulation) Start() { s.clock.Start() }

// Stop halts ticking. Idempotent.
func (s *Simulation) Stop() { s.clock.Stop() }

// Step advances the pipeline by dtSec simulated seconds: events decay and
// inject, the price process steps, the candle aggregator folds the tick,
// and the ledger evaluates orders. All reads of the current price within
// one step observe the same post-step value.
func (s *Simulation) Step(dtSec float64, now time.Time) {
	start := time.Now()
	s.mu.Lock()

	impact := s.events.OnTick(dtSec, now)
	price, volume := s.price.Step(dtSec, impact)
	s.events.SetRegime(s.price.Regime())

	tick := models.Tick{Time: now.UnixMilli(), Price: price, Volume: volume}
	s.ticks = append(s.ticks, tick)
	if len(s.ticks) > s.cfg.Sim.MaxTicks {
		s.ticks = s.ticks[len(s.ticks)-s.cfg.Sim.MaxTicks:]
	}
	s.lastPrice = price

	delta := s.agg.PushTick(tick.Time, price, volume)
	fills := s.book.OnPriceTick(tick)

	env := &models.TickEnvelope{
		Symbol:   s.cfg.Sim.Symbol,
		Tick:     tick,
		Candle:   &delta,
		Regime:   s.price.Regime(),
		Orders:   s.book.Orders(),
		Position: s.book.Position(),
		Trades:   s.book.Trades(),
		History:  s.book.History(),
		Realized: s.book.Realized(),
		Events:   impact.NewEvents,
	}
	activeEvents := s.events.ActiveCount()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordTick(env.Symbol, price, volume)
		s.metrics.RecordActiveEvents(activeEvents)
		for _, f := range fills {
			s.metrics.RecordFill(string(f.Side))
		}
		s.metrics.RecordTickDuration(time.Since(start).Seconds())
	}
	s.publish(env)
}

// publish fans the envelope out to all configured sinks. Every sink is
// best-effort: failures are logged and swallowed, the in-memory state
// remains the source of truth.
func (s *Simulation) publish(env *models.TickEnvelope) {
	if s.broadcast != nil {
		s.broadcast.Broadcast(env)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.journal != nil {
			if err := s.journal.SaveSnapshot(ctx, env.Orders, env.Trades, env.History); err != nil {
				s.log.Warn("journal save failed", logger.Error(err))
				if s.metrics != nil {
					s.metrics.RecordError("journal_save")
				}
			}
		}
		if s.archive != nil {
			if err := s.archive.Append(ctx, env.Symbol, env.Tick); err != nil {
				if s.metrics != nil {
					s.metrics.RecordError("archive_append")
				}
			}
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, env); err != nil {
				if s.metrics != nil {
					s.metrics.RecordError("kafka_publish")
				}
			}
		}
	}()
}

// ErrRateLimited marks an order rejected by the per-minute order cap.
var ErrRateLimited = errors.New("rate limit exceeded")

// PlaceOrderParams is the validated ingress request for a new order.
type PlaceOrderParams struct {
	Side        models.Side
	Type        models.OrderType
	Qty         float64
	Price       *float64
	Trigger     *float64
	SlPct       *float64
	TpPct       *float64
	SlippagePct float64
	ReduceOnly  bool
}

// PlaceOrder risk-validates and rate-limits the request, then queues the
// order for evaluation on the next tick. A rejection returns an error and
// mutates nothing.
func (s *Simulation) PlaceOrder(p PlaceOrderParams) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limiter.Allow(time.Now()) {
		if s.metrics != nil {
			s.metrics.RecordRejection("rate_limit")
		}
		return models.Order{}, fmt.Errorf("%w: max %d orders per minute", ErrRateLimited, s.cfg.Risk.MaxOrdersPerMinute)
	}

	o := models.Order{
		Time:        time.Now().UnixMilli(),
		Side:        p.Side,
		Type:        p.Type,
		Qty:         p.Qty,
		Price:       p.Price,
		Trigger:     p.Trigger,
		SlPct:       p.SlPct,
		TpPct:       p.TpPct,
		SlippagePct: p.SlippagePct,
		ReduceOnly:  p.ReduceOnly,
	}
	if o.SlippagePct == 0 {
		o.SlippagePct = s.cfg.Risk.SlippagePct
	}
	if err := ledger.ValidateRisk(&o, s.lastPrice, s.cfg.Risk, s.book.Position()); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRejection("risk")
		}
		return models.Order{}, err
	}

	o = s.book.Submit(o)
	if s.metrics != nil {
		s.metrics.RecordOrder(string(o.Status))
	}
	s.log.Debug("order queued",
		logger.String("id", o.ID),
		logger.String("side", string(o.Side)),
		logger.String("type", string(o.Type)),
		logger.Float("qty", o.Qty))
	return o, nil
}

// CancelOrder cancels a pending order.
func (s *Simulation) CancelOrder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Cancel(id)
}

// SetStopLossTakeProfit updates exit levels on the open position.
func (s *Simulation) SetStopLossTakeProfit(sl, tp *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.SetStopLossTakeProfit(sl, tp)
}

// ClosePercent submits a reduce-only market order for pct (0, 1] of the
// open position.
func (s *Simulation) ClosePercent(pct float64) (models.Order, error) {
	if pct <= 0 || pct > 1 {
		return models.Order{}, fmt.Errorf("pct must be in (0, 1]")
	}
	s.mu.Lock()
	pos := s.book.Position()
	s.mu.Unlock()
	if pos == nil || pos.Qty <= 0 {
		return models.Order{}, ledger.ErrNoPosition
	}
	return s.PlaceOrder(PlaceOrderParams{
		Side:       pos.Side.Opposite(),
		Type:       models.Market,
		Qty:        pos.Qty * pct,
		ReduceOnly: true,
	})
}

// Reset restarts the market from the initial price and regime. A non-empty
// seed replaces the random stream; an empty seed reuses the configured one,
// so the restarted path replays the original. Trading ledgers are untouched
// and re-mark against the fresh market on the next tick.
func (s *Simulation) Reset(seed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seed == "" {
		seed = s.cfg.Sim.Seed
	}
	s.rng.Reseed(engine.HashSeed(seed))
	s.events.Reset()
	s.price.Reset()
	s.agg.Reset()
	s.ticks = nil
	s.lastPrice = s.cfg.Sim.InitialPrice
	s.log.Info("market reset", logger.String("seed", seed))
}

// InjectEvent creates a news event of the given type immediately.
func (s *Simulation) InjectEvent(eventType string) (models.SimEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Inject(eventType, time.Now())
}

// SetSpeed adjusts the simulated-time multiplier.
func (s *Simulation) SetSpeed(mult float64) { s.clock.SetSpeed(mult) }

// SetVolatilityScale adjusts the price engine's volatility scale.
func (s *Simulation) SetVolatilityScale(mult float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price.SetVolatilityScale(mult)
}

// SetVolumeScale adjusts the price engine's volume scale.
func (s *Simulation) SetVolumeScale(mult float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price.SetVolumeScale(mult)
}

// SetEventRateScale adjusts the automatic news rate.
func (s *Simulation) SetEventRateScale(mult float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.SetRateScale(mult)
}

// SetTimeframe swaps the candle bucket width by constructing a fresh
// aggregator and replaying the retained tick history through it, which
// reproduces the exact candles a cold start would have built.
func (s *Simulation) SetTimeframe(tfSec int) ([]models.Candle, error) {
	if tfSec < 1 {
		return nil, fmt.Errorf("timeframe must be >= 1s")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := engine.NewCandleAggregator(tfSec, s.cfg.Sim.MaxCandles)
	for _, t := range s.ticks {
		agg.PushTick(t.Time, t.Price, t.Volume)
	}
	s.agg = agg
	return agg.Series(), nil
}

// Candles returns the current candle series, oldest first.
func (s *Simulation) Candles(limit int) []models.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.agg.Series()
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	return series
}

// State returns a copy of the full simulation state.
func (s *Simulation) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Symbol:       s.cfg.Sim.Symbol,
		Supply:       s.cfg.Sim.Supply,
		LastPrice:    s.lastPrice,
		Regime:       s.price.Regime(),
		Speed:        s.clock.Speed(),
		TimeframeSec: s.agg.TimeframeSec(),
		Candles:      s.agg.Series(),
		Orders:       s.book.Orders(),
		Position:     s.book.Position(),
		Trades:       s.book.Trades(),
		History:      s.book.History(),
		Realized:     s.book.Realized(),
	}
}
