package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/pkg/config"
)

const decayFloor = 0.02 // decayed weight below this drops the event

type activeImpact struct {
	ev      models.SimEvent
	startMs int64
	jumped  bool // one-time price jump already applied
}

// EventEngine injects discrete news events and folds their decaying impacts
// into a per-tick summary. Event types, per-regime rates and impact
// distributions come from validated config.
type EventEngine struct {
	cfg       *config.Sim
	rng       *RNG
	active    []activeImpact
	rateScale float64
	regime    string
	types     []string  // sorted for deterministic weighted pick
	cumWeight []float64 // cumulative type weights, parallel to types
	seq       uint64
}

// NewEventEngine builds an engine over the config's event catalogue.
func NewEventEngine(cfg *config.Sim, rng *RNG) *EventEngine {
	e := &EventEngine{
		cfg:       cfg,
		rng:       rng,
		rateScale: 1,
		regime:    cfg.StartRegime,
	}
	e.types = make([]string, 0, len(cfg.Events))
	for name := range cfg.Events {
		e.types = append(e.types, name)
	}
	sort.Strings(e.types)
	e.cumWeight = make([]float64, len(e.types))
	sum := 0.0
	for i, name := range e.types {
		sum += cfg.Events[name].Weight
		e.cumWeight[i] = sum
	}
	return e
}

// Reset drops all active events and restarts the ID sequence and regime.
// The user-set rate scale survives, like the price engine's scales.
func (e *EventEngine) Reset() {
	e.active = nil
	e.seq = 0
	e.regime = e.cfg.StartRegime
}

// SetRegime updates the regime used for the automatic injection rate.
func (e *EventEngine) SetRegime(r string) { e.regime = r }

// SetRateScale adjusts the automatic event rate, floored at 0.1.
func (e *EventEngine) SetRateScale(mult float64) {
	e.rateScale = math.Max(0.1, mult)
}

// ActiveCount reports how many events still contribute to ticks.
func (e *EventEngine) ActiveCount() int { return len(e.active) }

// Inject creates one event of the given type at now. The impact is drawn
// from the type's normal distribution and clamped to [-0.4, 0.4]. Unknown
// types are rejected.
func (e *EventEngine) Inject(eventType string, now time.Time) (models.SimEvent, error) {
	def, ok := e.cfg.Events[eventType]
	if !ok {
		return models.SimEvent{}, fmt.Errorf("unknown event type %q", eventType)
	}
	nowMs := now.UnixMilli()
	impact := clamp(e.rng.Normal()*def.ImpactStd+def.ImpactMean, -0.4, 0.4)
	e.seq++
	ev := models.SimEvent{
		ID:          fmt.Sprintf("E%d-%d", nowMs, e.seq),
		Time:        nowMs,
		Type:        eventType,
		Text:        def.Text,
		Impact:      impact,
		VolBoost:    def.VolBoost,
		HalfLifeSec: def.HalfLifeSec,
	}
	e.active = append(e.active, activeImpact{ev: ev, startMs: nowMs})
	return ev, nil
}

// OnTick advances the event engine by dtSec: it stochastically injects new
// events at the current regime's rate, then recomputes the decayed weight of
// every active event and aggregates their contributions. Events fire their
// one-time price jump only on the tick they were born in.
func (e *EventEngine) OnTick(dtSec float64, now time.Time) models.EventImpact {
	rate := e.cfg.Regimes[e.regime].EventRate * e.rateScale
	count := e.rng.Poisson(rate * dtSec)
	var born []models.SimEvent
	for i := 0; i < count; i++ {
		ev, err := e.Inject(e.pickType(), now)
		if err == nil {
			born = append(born, ev)
		}
	}

	nowMs := now.UnixMilli()
	out := models.NeutralImpact()
	out.NewEvents = born

	still := e.active[:0]
	for i := range e.active {
		a := e.active[i]
		ageSec := float64(nowMs-a.startMs) / 1000
		w := math.Exp(-math.Ln2 * ageSec / a.ev.HalfLifeSec)
		if w <= decayFloor {
			continue
		}
		def := e.cfg.Events[a.ev.Type]
		out.DriftBoost += def.MuBoost * w
		out.VolBoostMul *= 1 + (a.ev.VolBoost-1)*w*0.8
		if !a.jumped && ageSec < dtSec+1e-6 {
			out.PriceJumpMul *= 1 + a.ev.Impact
			a.jumped = true
		}
		still = append(still, a)
	}
	e.active = still
	return out
}

// pickType draws an event type by cumulative config weight.
func (e *EventEngine) pickType() string {
	total := e.cumWeight[len(e.cumWeight)-1]
	u := e.rng.Next() * total
	for i, cw := range e.cumWeight {
		if u < cw {
			return e.types[i]
		}
	}
	return e.types[len(e.types)-1]
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
