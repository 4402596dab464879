package models

// Tick is one simulated market step: unix-millisecond time, last price and
// traded volume produced by the price engine.
type Tick struct {
	Time   int64   `json:"t"`
	Price  float64 `json:"p"`
	Volume float64 `json:"v"`
}

// Candle is an aggregated OHLCV bucket. Time is the aligned bucket start in
// unix seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// CandleMode reports whether a tick opened a new candle or updated the
// current one.
type CandleMode string

const (
	CandleNew    CandleMode = "new"
	CandleUpdate CandleMode = "update"
)

// CandleDelta is the per-tick aggregator output.
type CandleDelta struct {
	Mode   CandleMode `json:"mode"`
	Candle Candle     `json:"candle"`
}

// SimEvent is a discrete news event injected into the simulation. Immutable
// once created; its decayed weight contributes to ticks until it falls below
// the garbage-collection threshold.
type SimEvent struct {
	ID          string  `json:"id"`
	Time        int64   `json:"time"` // unix ms
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	Impact      float64 `json:"impact"`   // one-time multiplicative jump factor - 1, in [-0.4, 0.4]
	VolBoost    float64 `json:"volBoost"` // volatility multiplier > 0
	HalfLifeSec float64 `json:"halfLifeSec"`
}

// EventImpact aggregates all active event contributions for one tick.
type EventImpact struct {
	PriceJumpMul float64    `json:"priceJumpMul"` // compounded 1+impact of events born this tick
	DriftBoost   float64    `json:"driftBoost"`   // additive drift term, decaying
	VolBoostMul  float64    `json:"volBoostMul"`  // multiplicative volatility term, decaying
	NewEvents    []SimEvent `json:"newEvents,omitempty"`
}

// NeutralImpact is the impact summary with no active events.
func NeutralImpact() EventImpact {
	return EventImpact{PriceJumpMul: 1, DriftBoost: 0, VolBoostMul: 1}
}
