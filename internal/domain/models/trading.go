package models

// Side is the direction of an order or position.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the closing direction for s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType enumerates supported order types. Market and IOC behave
// identically in the simplified fill model; a market order with a trigger
// acts as a stop-market.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
	IOC    OrderType = "ioc"
)

// OrderStatus is the order lifecycle state. Terminal states are immutable.
type OrderStatus string

const (
	OrderNew        OrderStatus = "new"
	OrderPartFilled OrderStatus = "partfilled"
	OrderFilled     OrderStatus = "filled"
	OrderCanceled   OrderStatus = "canceled"
	OrderRejected   OrderStatus = "rejected"
)

// Order is a submitted order. Created with status new; transitions to a
// terminal status exactly once.
type Order struct {
	ID          string      `json:"id"`
	Time        int64       `json:"ts"` // unix ms
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Type        OrderType   `json:"type"`
	Qty         float64     `json:"qty"`
	Price       *float64    `json:"price,omitempty"`
	Trigger     *float64    `json:"trigger,omitempty"`
	SlPct       *float64    `json:"slPct,omitempty"`
	TpPct       *float64    `json:"tpPct,omitempty"`
	SlippagePct float64     `json:"slippagePct"`
	ReduceOnly  bool        `json:"reduceOnly,omitempty"`
	Status      OrderStatus `json:"status"`
}

// Position is the single open position for a symbol. Entry is the weighted
// average of all opening fills; Fees accumulates fees paid while the
// position is open.
type Position struct {
	Symbol     string   `json:"symbol"`
	Side       Side     `json:"side"`
	Qty        float64  `json:"qty"`
	Entry      float64  `json:"entry"`
	StopLoss   *float64 `json:"sl,omitempty"`
	TakeProfit *float64 `json:"tp,omitempty"`
	Unrealized float64  `json:"unrealized"`
	Fees       float64  `json:"fees"`
}

// Trade is an immutable fill record.
type Trade struct {
	ID      string  `json:"id"`
	OrderID string  `json:"orderId"`
	Price   float64 `json:"price"`
	Qty     float64 `json:"qty"`
	Fee     float64 `json:"fee"`
	Time    int64   `json:"ts"` // unix ms
	Side    Side    `json:"side"`
}

// PositionHistory is a closed round trip: one FIFO lot sequence fully
// unwound. Immutable once appended.
type PositionHistory struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Side        Side    `json:"side"`
	Size        float64 `json:"size"`
	EntryAvg    float64 `json:"entryAvg"`
	ExitAvg     float64 `json:"exitAvg"`
	Notional    float64 `json:"notional"`
	Pnl         float64 `json:"pnl"`
	Fees        float64 `json:"fees"`
	OpenTime    int64   `json:"openTs"`  // unix ms
	CloseTime   int64   `json:"closeTs"` // unix ms
	DurationSec int64   `json:"durationSec"`
}

// TickEnvelope is the per-tick egress snapshot published to external
// consumers (websocket clients, Kafka, the journal). All slices are copies;
// consumers may not mutate engine state through it.
type TickEnvelope struct {
	Symbol   string             `json:"symbol"`
	Tick     Tick               `json:"tick"`
	Candle   *CandleDelta       `json:"candle,omitempty"`
	Regime   string             `json:"regime"`
	Orders   []Order            `json:"orders"`
	Position *Position          `json:"position,omitempty"`
	Trades   []Trade            `json:"trades"`
	History  []PositionHistory  `json:"history"`
	Realized map[string]float64 `json:"realized,omitempty"`
	Events   []SimEvent         `json:"events,omitempty"`
}
