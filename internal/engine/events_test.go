package engine

import (
	"math"
	"testing"
	"time"

	"github.com/lotoos0/memex-sim/pkg/config"
)

func eventTestConfig() *config.Sim {
	cfg := config.Default()
	cfg.Sim.Events = map[string]config.Event{
		"hype": {ImpactMean: 0.1, ImpactStd: 0.05, VolBoost: 2.0, MuBoost: 0.002, HalfLifeSec: 10, Weight: 1, Text: "hype"},
		"fud":  {ImpactMean: -0.1, ImpactStd: 0.05, VolBoost: 1.5, MuBoost: -0.001, HalfLifeSec: 5, Weight: 1, Text: "fud"},
	}
	// no automatic injections unless a test wants them
	for name, r := range cfg.Sim.Regimes {
		r.EventRate = 0
		cfg.Sim.Regimes[name] = r
	}
	return &cfg.Sim
}

func TestInjectUnknownType(t *testing.T) {
	e := NewEventEngine(eventTestConfig(), NewRNGFromString("ev"))
	if _, err := e.Inject("nope", time.Now()); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestInjectImpactClamped(t *testing.T) {
	cfg := eventTestConfig()
	cfg.Events["wild"] = config.Event{ImpactMean: 0, ImpactStd: 10, VolBoost: 2, HalfLifeSec: 10, Weight: 1}
	e := NewEventEngine(cfg, NewRNGFromString("clamp"))
	for i := 0; i < 200; i++ {
		ev, err := e.Inject("wild", time.Now())
		if err != nil {
			t.Fatalf("inject: %v", err)
		}
		if ev.Impact < -0.4 || ev.Impact > 0.4 {
			t.Fatalf("impact %v outside [-0.4, 0.4]", ev.Impact)
		}
	}
}

func TestJumpFiresOnlyOnBirthTick(t *testing.T) {
	e := NewEventEngine(eventTestConfig(), NewRNGFromString("jump"))
	now := time.UnixMilli(1_000_000)
	ev, err := e.Inject("hype", now)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}

	// the tick the event was born in carries the one-time jump
	imp := e.OnTick(0.1, now)
	want := 1 + ev.Impact
	if math.Abs(imp.PriceJumpMul-want) > 1e-12 {
		t.Fatalf("birth tick jump = %v, want %v", imp.PriceJumpMul, want)
	}

	// one tick later the jump is gone but drift/vol boosts persist
	later := now.Add(100 * time.Millisecond)
	imp = e.OnTick(0.1, later)
	if imp.PriceJumpMul != 1 {
		t.Fatalf("jump fired twice: %v", imp.PriceJumpMul)
	}
	if imp.VolBoostMul <= 1 {
		t.Fatalf("vol boost should persist, got %v", imp.VolBoostMul)
	}
	if imp.DriftBoost <= 0 {
		t.Fatalf("drift boost should persist, got %v", imp.DriftBoost)
	}
}

func TestDecayDropsEvent(t *testing.T) {
	e := NewEventEngine(eventTestConfig(), NewRNGFromString("decay"))
	now := time.UnixMilli(1_000_000)
	if _, err := e.Inject("fud", now); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if e.ActiveCount() != 1 {
		t.Fatalf("expected 1 active event, got %d", e.ActiveCount())
	}

	// half-life 5s: after 60s the weight is 2^-12, far below the floor
	imp := e.OnTick(0.1, now.Add(60*time.Second))
	if e.ActiveCount() != 0 {
		t.Fatalf("decayed event not dropped, %d active", e.ActiveCount())
	}
	if imp.VolBoostMul != 1 || imp.DriftBoost != 0 {
		t.Fatalf("dropped event still contributes: %+v", imp)
	}
}

func TestDecayWeightHalvesAtHalfLife(t *testing.T) {
	cfg := eventTestConfig()
	cfg.Events["hype"] = config.Event{ImpactMean: 0, ImpactStd: 0, VolBoost: 2, MuBoost: 0.01, HalfLifeSec: 10, Weight: 1}
	e := NewEventEngine(cfg, NewRNGFromString("halflife"))
	now := time.UnixMilli(1_000_000)
	if _, err := e.Inject("hype", now); err != nil {
		t.Fatalf("inject: %v", err)
	}

	imp := e.OnTick(0.1, now.Add(10*time.Second))
	// w = 0.5 at one half-life: drift contribution is muBoost * 0.5
	if math.Abs(imp.DriftBoost-0.005) > 1e-12 {
		t.Fatalf("drift at half-life = %v, want 0.005", imp.DriftBoost)
	}
	// vol contribution is 1 + (volBoost-1)*w*0.8 = 1.4
	if math.Abs(imp.VolBoostMul-1.4) > 1e-12 {
		t.Fatalf("vol boost at half-life = %v, want 1.4", imp.VolBoostMul)
	}
}

func TestAutomaticInjectionRate(t *testing.T) {
	cfg := eventTestConfig()
	r := cfg.Regimes[cfg.StartRegime]
	r.EventRate = 5 // events per second, high enough to observe
	cfg.Regimes[cfg.StartRegime] = r
	e := NewEventEngine(cfg, NewRNGFromString("autorate"))

	now := time.UnixMilli(1_000_000)
	born := 0
	for i := 0; i < 1000; i++ {
		imp := e.OnTick(0.1, now)
		born += len(imp.NewEvents)
		now = now.Add(100 * time.Millisecond)
	}
	// expectation is rate*dt*steps = 500
	if born < 350 || born > 650 {
		t.Fatalf("expected around 500 injected events, got %d", born)
	}
}

func TestPickTypeDeterministic(t *testing.T) {
	cfg := eventTestConfig()
	a := NewEventEngine(cfg, NewRNGFromString("pick"))
	b := NewEventEngine(cfg, NewRNGFromString("pick"))
	for i := 0; i < 100; i++ {
		if a.pickType() != b.pickType() {
			t.Fatalf("pickType diverged at draw %d", i)
		}
	}
}
