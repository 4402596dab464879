package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/internal/ledger"
	internalrepo "github.com/lotoos0/memex-sim/internal/repository"
	"github.com/lotoos0/memex-sim/pkg/config"
	"github.com/lotoos0/memex-sim/pkg/kv"
	"github.com/lotoos0/memex-sim/pkg/logger"
)

func testSim(t *testing.T, cfg *config.Config) *Simulation {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	return New(cfg, logger.Nop(), nil, nil, nil, nil, nil)
}

// drive advances the pipeline n steps of 100ms starting at a fixed epoch.
func drive(s *Simulation, n int) {
	now := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < n; i++ {
		s.Step(0.1, now)
		now = now.Add(100 * time.Millisecond)
	}
}

func TestStepProducesTicksAndCandles(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 50)

	st := s.State()
	if st.LastPrice <= 0 {
		t.Fatalf("last price must be positive, got %v", st.LastPrice)
	}
	if len(st.Candles) == 0 {
		t.Fatalf("expected candles after stepping")
	}
	if st.Regime == "" {
		t.Fatalf("expected a regime")
	}
}

func TestStepDeterministicReplay(t *testing.T) {
	a := testSim(t, nil)
	b := testSim(t, nil)
	drive(a, 500)
	drive(b, 500)

	sa, sb := a.State(), b.State()
	if sa.LastPrice != sb.LastPrice {
		t.Fatalf("price paths diverged: %v vs %v", sa.LastPrice, sb.LastPrice)
	}
	if len(sa.Candles) != len(sb.Candles) {
		t.Fatalf("candle counts diverged: %d vs %d", len(sa.Candles), len(sb.Candles))
	}
	for i := range sa.Candles {
		if sa.Candles[i] != sb.Candles[i] {
			t.Fatalf("candle %d diverged: %+v vs %+v", i, sa.Candles[i], sb.Candles[i])
		}
	}
}

func TestPlaceOrderFillsOnNextStep(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 1)

	o, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 10})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if o.Status != models.OrderNew {
		t.Fatalf("order should be pending until the next tick, got %s", o.Status)
	}
	if s.State().Position != nil {
		t.Fatalf("position must not open before a tick")
	}

	drive(s, 1)
	st := s.State()
	if st.Position == nil || st.Position.Qty != 10 {
		t.Fatalf("expected filled position, got %+v", st.Position)
	}
	if len(st.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(st.Trades))
	}
}

func TestPlaceOrderRateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.Risk.MaxOrdersPerMinute = 2
	s := testSim(t, cfg)
	drive(s, 1)

	for i := 0; i < 2; i++ {
		if _, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 1}); err != nil {
			t.Fatalf("order %d rejected: %v", i, err)
		}
	}
	_, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 1})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestPlaceOrderRiskRejected(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 1)
	// default 1% stop distance: risk = qty * 0.01 > 200 for qty > 20000
	_, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 100000})
	if err == nil {
		t.Fatalf("oversized order must be rejected")
	}
	if len(s.State().Orders) != 0 {
		t.Fatalf("rejected order must not reach the ledger")
	}
}

func TestCancelOrder(t *testing.T) {
	s := testSim(t, nil)
	o, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 1})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if err := s.CancelOrder(o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	drive(s, 1)
	if s.State().Position != nil {
		t.Fatalf("canceled order must not fill")
	}
	if err := s.CancelOrder("O999"); !errors.Is(err, ledger.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestClosePercentWithoutPosition(t *testing.T) {
	s := testSim(t, nil)
	if _, err := s.ClosePercent(0.5); !errors.Is(err, ledger.ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
	if _, err := s.ClosePercent(1.5); err == nil {
		t.Fatalf("pct above 1 must be rejected")
	}
}

func TestClosePercentHalvesPosition(t *testing.T) {
	s := testSim(t, nil)
	if _, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 10}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	drive(s, 1)

	if _, err := s.ClosePercent(0.5); err != nil {
		t.Fatalf("close percent: %v", err)
	}
	drive(s, 1)
	st := s.State()
	if st.Position == nil || st.Position.Qty != 5 {
		t.Fatalf("expected half position remaining, got %+v", st.Position)
	}
}

func TestInjectEvent(t *testing.T) {
	s := testSim(t, nil)
	if _, err := s.InjectEvent("nope"); err == nil {
		t.Fatalf("unknown event type must be rejected")
	}
	ev, err := s.InjectEvent("ct_hype")
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if ev.ID == "" || ev.Type != "ct_hype" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestSetTimeframeReplaysTicks(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 200) // 20s of simulated time at 100ms per step

	coarse, err := s.SetTimeframe(10)
	if err != nil {
		t.Fatalf("set timeframe: %v", err)
	}
	if len(coarse) == 0 {
		t.Fatalf("expected candles after re-aggregation")
	}
	if s.State().TimeframeSec != 10 {
		t.Fatalf("timeframe not applied")
	}

	// volume is conserved across bucket widths
	fine, err := s.SetTimeframe(1)
	if err != nil {
		t.Fatalf("set timeframe: %v", err)
	}
	var coarseVol, fineVol float64
	for _, c := range coarse {
		coarseVol += c.Volume
	}
	for _, c := range fine {
		fineVol += c.Volume
	}
	if diff := coarseVol - fineVol; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("volume not conserved across timeframes: %v vs %v", coarseVol, fineVol)
	}

	if _, err := s.SetTimeframe(0); err == nil {
		t.Fatalf("timeframe below 1s must be rejected")
	}
}

func TestHydrateRestoresLedgers(t *testing.T) {
	journal := internalrepo.NewKVJournal(kv.NewMemoryStore())
	orders := []models.Order{{ID: "O4", Time: 2000, Symbol: "MEME/USDC", Side: models.Buy, Type: models.Market, Qty: 1, Status: models.OrderFilled}}
	trades := []models.Trade{{ID: "T5", OrderID: "O4", Price: 1, Qty: 1, Time: 2000, Side: models.Buy}}
	if err := journal.SaveSnapshot(context.Background(), orders, trades, nil); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	cfg := config.Default()
	s := New(cfg, logger.Nop(), journal, nil, nil, nil, nil)
	s.Hydrate(context.Background())

	st := s.State()
	if len(st.Orders) != 1 || st.Orders[0].ID != "O4" {
		t.Fatalf("orders not hydrated: %+v", st.Orders)
	}
	if len(st.Trades) != 1 || st.Trades[0].ID != "T5" {
		t.Fatalf("trades not hydrated: %+v", st.Trades)
	}
}

func TestCandlesLimit(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 100)
	all := s.Candles(0)
	if len(all) < 5 {
		t.Fatalf("expected several candles, got %d", len(all))
	}
	limited := s.Candles(3)
	if len(limited) != 3 {
		t.Fatalf("limit not applied: %d", len(limited))
	}
	if limited[2] != all[len(all)-1] {
		t.Fatalf("limited series must keep the newest candles")
	}
}

func TestResetReplaysSamePath(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 200)
	before := s.State()

	s.Reset("")
	if got := s.State(); len(got.Candles) != 0 || got.LastPrice != s.cfg.Sim.InitialPrice {
		t.Fatalf("reset did not clear market state: %d candles, price %v", len(got.Candles), got.LastPrice)
	}

	drive(s, 200)
	after := s.State()
	if before.LastPrice != after.LastPrice {
		t.Fatalf("replay diverged: %v vs %v", before.LastPrice, after.LastPrice)
	}
	if len(before.Candles) != len(after.Candles) {
		t.Fatalf("candle counts diverged: %d vs %d", len(before.Candles), len(after.Candles))
	}
	for i := range before.Candles {
		if before.Candles[i] != after.Candles[i] {
			t.Fatalf("candle %d diverged: %+v vs %+v", i, before.Candles[i], after.Candles[i])
		}
	}
}

func TestResetWithNewSeedDiverges(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 200)
	before := s.State()

	s.Reset("another universe")
	drive(s, 200)
	after := s.State()
	if before.LastPrice == after.LastPrice {
		t.Fatalf("expected a different path under a new seed, both ended at %v", after.LastPrice)
	}
}

func TestResetKeepsLedgers(t *testing.T) {
	s := testSim(t, nil)
	drive(s, 1)
	if _, err := s.PlaceOrder(PlaceOrderParams{Side: models.Buy, Type: models.Market, Qty: 10}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	drive(s, 2)

	s.Reset("")
	st := s.State()
	if len(st.Orders) != 1 || len(st.Trades) != 1 {
		t.Fatalf("ledgers should survive reset: %d orders, %d trades", len(st.Orders), len(st.Trades))
	}
	if st.Position == nil || st.Position.Qty != 10 {
		t.Fatalf("position should survive reset: %+v", st.Position)
	}
}
