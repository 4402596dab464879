package models

// HTTP request models. Bind tags cover both JSON bodies and query strings;
// defaults are applied before validation.

// PlaceOrderRequest creates a new order.
type PlaceOrderRequest struct {
	Side        string   `json:"side" validate:"required,oneof=buy sell"`
	Type        string   `json:"type" default:"market" validate:"oneof=market limit ioc"`
	Qty         float64  `json:"qty" validate:"required,gt=0"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Trigger     *float64 `json:"trigger,omitempty" validate:"omitempty,gt=0"`
	SlPct       *float64 `json:"slPct,omitempty" validate:"omitempty,gt=0,lte=1"`
	TpPct       *float64 `json:"tpPct,omitempty" validate:"omitempty,gt=0"`
	SlippagePct *float64 `json:"slippagePct,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReduceOnly  bool     `json:"reduceOnly,omitempty"`
}

// SetSLTPRequest updates exit levels on the open position. A nil field
// leaves the level unchanged.
type SetSLTPRequest struct {
	StopLoss   *float64 `json:"sl,omitempty" validate:"omitempty,gt=0"`
	TakeProfit *float64 `json:"tp,omitempty" validate:"omitempty,gt=0"`
}

// ClosePositionRequest closes a fraction of the open position.
type ClosePositionRequest struct {
	Pct float64 `json:"pct" default:"1" validate:"gt=0,lte=1"`
}

// InjectEventRequest fires a news event immediately.
type InjectEventRequest struct {
	Type string `json:"type" validate:"required"`
}

// ControlsRequest tunes live simulation knobs. Nil fields are untouched.
type ControlsRequest struct {
	Speed        *float64 `json:"speed,omitempty" validate:"omitempty,gt=0,lte=100"`
	Volatility   *float64 `json:"volatility,omitempty" validate:"omitempty,gt=0,lte=10"`
	Volume       *float64 `json:"volume,omitempty" validate:"omitempty,gt=0,lte=10"`
	EventRate    *float64 `json:"eventRate,omitempty" validate:"omitempty,gt=0,lte=10"`
	TimeframeSec *int     `json:"tfSec,omitempty" validate:"omitempty,gte=1,lte=86400"`
}

// ResetRequest restarts the market. An empty seed replays the configured one.
type ResetRequest struct {
	Seed string `json:"seed,omitempty" validate:"omitempty,max=64"`
}

// CandlesRequest limits the candle series returned.
type CandlesRequest struct {
	Limit int `query:"limit" default:"500" validate:"gte=0,lte=3000"`
}
