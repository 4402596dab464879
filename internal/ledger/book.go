// Package ledger implements order execution, position accounting and the
// FIFO round-trip history for the simulated market. It consumes plain ticks
// and knows nothing about the simulation internals.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/lotoos0/memex-sim/internal/domain/models"
)

var (
	// ErrOrderNotFound is returned when an order id does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrNoPosition is returned when an operation needs an open position.
	ErrNoPosition = errors.New("no open position")
)

const (
	maxLedger = 2000  // retained orders/trades/history entries
	qtyEps    = 1e-12 // quantities below this are treated as zero
)

type lot struct {
	qty   float64
	price float64
	ts    int64
}

// lotAcc accumulates opening lots for one symbol on the currently-open side.
// Opposite-side fills consume it FIFO; when it empties exactly, a
// PositionHistory round trip is emitted.
type lotAcc struct {
	side   models.Side
	openTs int64
	lots   []lot
	fees   float64
}

// Book is the single-writer order book and position ledger for one symbol.
// All mutation happens through Submit, Cancel, SetStopLossTakeProfit and
// OnPriceTick; observers get copies via the snapshot accessors.
type Book struct {
	symbol      string
	feeBps      float64
	slippagePct float64 // default slippage for synthetic SL/TP exits

	orders   []models.Order // submission order, oldest first
	trades   []models.Trade
	history  []models.PositionHistory
	position map[string]*models.Position
	acc      map[string]*lotAcc
	realized map[string]float64

	tickFills []models.Trade // fills produced by the current tick
	seq       uint64
}

// NewBook creates an empty ledger. feeBps is the taker fee in basis points;
// slippagePct is applied to synthetic stop-loss/take-profit exits.
func NewBook(symbol string, feeBps, slippagePct float64) *Book {
	return &Book{
		symbol:      symbol,
		feeBps:      feeBps,
		slippagePct: slippagePct,
		position:    make(map[string]*models.Position),
		acc:         make(map[string]*lotAcc),
		realized:    make(map[string]float64),
	}
}

func (b *Book) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

// Submit appends a new order. The order is only evaluated for fills on the
// next price tick.
func (b *Book) Submit(o models.Order) models.Order {
	o.ID = b.nextID("O")
	o.Symbol = b.symbol
	o.Status = models.OrderNew
	b.orders = append(b.orders, o)
	if len(b.orders) > maxLedger {
		b.orders = b.orders[len(b.orders)-maxLedger:]
	}
	return o
}

// Cancel marks a pending order canceled. Terminal orders are immutable.
func (b *Book) Cancel(id string) error {
	for i := range b.orders {
		if b.orders[i].ID == id {
			if b.orders[i].Status != models.OrderNew {
				return fmt.Errorf("order %s is %s", id, b.orders[i].Status)
			}
			b.orders[i].Status = models.OrderCanceled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

// SetStopLossTakeProfit updates the open position's exit levels. Nil leaves
// a level unchanged.
func (b *Book) SetStopLossTakeProfit(sl, tp *float64) error {
	p, ok := b.position[b.symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, b.symbol)
	}
	if sl != nil {
		v := *sl
		p.StopLoss = &v
	}
	if tp != nil {
		v := *tp
		p.TakeProfit = &v
	}
	return nil
}

// Position returns a copy of the open position, or nil.
func (b *Book) Position() *models.Position {
	p, ok := b.position[b.symbol]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Orders returns the order ledger newest first.
func (b *Book) Orders() []models.Order {
	out := make([]models.Order, len(b.orders))
	for i, o := range b.orders {
		out[len(b.orders)-1-i] = o
	}
	return out
}

// Trades returns the trade ledger newest first.
func (b *Book) Trades() []models.Trade {
	out := make([]models.Trade, len(b.trades))
	for i, t := range b.trades {
		out[len(b.trades)-1-i] = t
	}
	return out
}

// History returns the round-trip ledger newest first.
func (b *Book) History() []models.PositionHistory {
	out := make([]models.PositionHistory, len(b.history))
	for i, h := range b.history {
		out[len(b.history)-1-i] = h
	}
	return out
}

// Realized returns a copy of the realized P&L tally per symbol.
func (b *Book) Realized() map[string]float64 {
	out := make(map[string]float64, len(b.realized))
	for k, v := range b.realized {
		out[k] = v
	}
	return out
}

// Hydrate restores the three ledgers from persisted snapshots (stored
// newest first). The live position and lot accumulators are not restored;
// a restart flattens exposure.
func (b *Book) Hydrate(orders []models.Order, trades []models.Trade, history []models.PositionHistory) {
	b.orders = reverseOrders(capOrders(orders))
	b.trades = reverseTrades(capTrades(trades))
	b.history = reverseHistory(capHistory(history))
	for _, o := range b.orders {
		if n := parseSeq(o.ID); n > b.seq {
			b.seq = n
		}
	}
	for _, t := range b.trades {
		if n := parseSeq(t.ID); n > b.seq {
			b.seq = n
		}
	}
}

// OnPriceTick evaluates pending orders against the new price, applies
// stop-loss/take-profit exits and refreshes unrealized P&L. Orders are
// evaluated in submission order. The returned slice holds the fills this
// tick produced and is only valid until the next call.
func (b *Book) OnPriceTick(t models.Tick) []models.Trade {
	price := t.Price
	feePct := b.feeBps / 10000
	b.tickFills = b.tickFills[:0]

	for i := range b.orders {
		o := &b.orders[i]
		if o.Status != models.OrderNew {
			continue
		}

		triggered := o.Trigger == nil ||
			(o.Side == models.Buy && price >= *o.Trigger) ||
			(o.Side == models.Sell && price <= *o.Trigger)

		switch o.Type {
		case models.Market, models.IOC:
			if !triggered {
				continue // stop-market waits for its trigger
			}
			slipMul := 1 + o.SlippagePct/100
			if o.Side == models.Sell {
				slipMul = 1 - o.SlippagePct/100
			}
			fillPrice := price * slipMul
			b.fill(o, fillPrice, o.Qty, o.Qty*feePct, t.Time)
			if o.Price == nil {
				p := fillPrice
				o.Price = &p
			}
		case models.Limit:
			if o.Trigger != nil && !triggered {
				continue
			}
			limit := 0.0
			if o.Price != nil {
				limit = *o.Price
			}
			crossed := (o.Side == models.Buy && price <= limit) ||
				(o.Side == models.Sell && price >= limit)
			if !crossed {
				continue
			}
			px := limit
			if px == 0 {
				px = price
			}
			b.fill(o, px, o.Qty, o.Qty*feePct, t.Time)
		}
	}

	b.applyExits(price, t.Time)

	// refresh unrealized P&L on the surviving position
	if p, ok := b.position[b.symbol]; ok {
		if p.Side == models.Buy {
			p.Unrealized = (price-p.Entry)*p.Qty - p.Fees
		} else {
			p.Unrealized = (p.Entry-price)*p.Qty - p.Fees
		}
	}
	return b.tickFills
}

// fill records the trade, updates the live position and the FIFO history
// accumulator, and marks the order filled.
func (b *Book) fill(o *models.Order, price, qty, fee float64, ts int64) {
	tr := models.Trade{
		ID:      b.nextID("T"),
		OrderID: o.ID,
		Price:   price,
		Qty:     qty,
		Fee:     fee,
		Time:    ts,
		Side:    o.Side,
	}
	b.trades = append(b.trades, tr)
	if len(b.trades) > maxLedger {
		b.trades = b.trades[len(b.trades)-maxLedger:]
	}
	b.tickFills = append(b.tickFills, tr)

	b.realized[b.symbol] += b.applyFill(o.Side, qty, price, fee)
	b.recordFillForHistory(o.Side, qty, price, fee, ts)
	o.Status = models.OrderFilled
}

// applyFill updates the live position for one fill and returns the realized
// P&L delta. Same-direction fills recompute the weighted-average entry;
// opposite-direction fills close up to the open quantity and flip on
// over-close.
func (b *Book) applyFill(side models.Side, qty, price, fee float64) float64 {
	p, ok := b.position[b.symbol]
	if !ok {
		b.position[b.symbol] = &models.Position{
			Symbol: b.symbol, Side: side, Qty: qty, Entry: price, Fees: fee,
		}
		return -fee
	}

	if p.Side != side {
		closeQty := math.Min(p.Qty, qty)
		remain := p.Qty - closeQty
		realized := -fee
		if p.Side == models.Buy {
			realized += (price - p.Entry) * closeQty
		} else {
			realized += (p.Entry - price) * closeQty
		}
		if remain > qtyEps {
			p.Qty = remain
		} else {
			delete(b.position, b.symbol)
			if openQty := qty - closeQty; openQty > qtyEps {
				b.position[b.symbol] = &models.Position{
					Symbol: b.symbol, Side: side, Qty: openQty, Entry: price,
				}
			}
		}
		return realized
	}

	newQty := p.Qty + qty
	p.Entry = (p.Entry*p.Qty + price*qty) / newQty
	p.Qty = newQty
	p.Fees += fee
	return -fee
}

// recordFillForHistory drives the FIFO lot accumulator, independent of the
// live position. Fees already on the accumulator are attributed to the
// closed fraction proportionally; an over-close starts a fresh sequence on
// the flipped side.
func (b *Book) recordFillForHistory(side models.Side, qty, price, fee float64, ts int64) {
	acc, ok := b.acc[b.symbol]
	if !ok {
		b.acc[b.symbol] = &lotAcc{side: side, openTs: ts, lots: []lot{{qty: qty, price: price, ts: ts}}, fees: fee}
		return
	}
	if acc.side == side {
		acc.lots = append(acc.lots, lot{qty: qty, price: price, ts: ts})
		acc.fees += fee
		return
	}

	remaining := qty
	closedQty, entryNotional, exitNotional := 0.0, 0.0, 0.0
	openQtyBefore := 0.0
	for _, l := range acc.lots {
		openQtyBefore += l.qty
	}
	for remaining > qtyEps && len(acc.lots) > 0 {
		l := &acc.lots[0]
		use := math.Min(l.qty, remaining)
		closedQty += use
		entryNotional += l.price * use
		exitNotional += price * use
		l.qty -= use
		remaining -= use
		if l.qty <= qtyEps {
			acc.lots = acc.lots[1:]
		}
	}

	pnlGross := exitNotional - entryNotional
	if acc.side == models.Sell {
		pnlGross = entryNotional - exitNotional
	}
	allocFees := 0.0
	if openQtyBefore > 0 {
		allocFees = acc.fees * math.Min(1, closedQty/openQtyBefore)
	}

	if len(acc.lots) == 0 {
		entryAvg, exitAvg := 0.0, 0.0
		if closedQty > 0 {
			entryAvg = entryNotional / closedQty
			exitAvg = exitNotional / closedQty
		}
		b.history = append(b.history, models.PositionHistory{
			ID:          b.nextID("PH"),
			Symbol:      b.symbol,
			Side:        acc.side,
			Size:        closedQty,
			EntryAvg:    entryAvg,
			ExitAvg:     exitAvg,
			Notional:    entryNotional,
			Pnl:         pnlGross - allocFees - fee,
			Fees:        allocFees + fee,
			OpenTime:    acc.openTs,
			CloseTime:   ts,
			DurationSec: maxInt64(0, (ts-acc.openTs+500)/1000),
		})
		if len(b.history) > maxLedger {
			b.history = b.history[len(b.history)-maxLedger:]
		}
		delete(b.acc, b.symbol)
	} else {
		acc.fees = math.Max(0, acc.fees-allocFees)
	}

	if remaining > qtyEps {
		b.acc[b.symbol] = &lotAcc{side: side, openTs: ts, lots: []lot{{qty: remaining, price: price, ts: ts}}}
	}
}

// applyExits closes positions whose stop-loss or take-profit level is
// breached. Exits route through the same fill path as a reduce-only market
// order so they produce Trade and PositionHistory records.
func (b *Book) applyExits(price float64, ts int64) {
	p, ok := b.position[b.symbol]
	if !ok {
		return
	}
	breached := false
	if p.Side == models.Buy {
		breached = (p.StopLoss != nil && price <= *p.StopLoss) ||
			(p.TakeProfit != nil && price >= *p.TakeProfit)
	} else {
		breached = (p.StopLoss != nil && price >= *p.StopLoss) ||
			(p.TakeProfit != nil && price <= *p.TakeProfit)
	}
	if !breached {
		return
	}

	side := p.Side.Opposite()
	qty := p.Qty
	slipMul := 1 + b.slippagePct/100
	if side == models.Sell {
		slipMul = 1 - b.slippagePct/100
	}
	fillPrice := price * slipMul
	fee := qty * b.feeBps / 10000

	exit := models.Order{
		Time:        ts,
		Side:        side,
		Type:        models.Market,
		Qty:         qty,
		SlippagePct: b.slippagePct,
		ReduceOnly:  true,
	}
	exit = b.Submit(exit)
	for i := range b.orders {
		if b.orders[i].ID == exit.ID {
			b.fill(&b.orders[i], fillPrice, qty, fee, ts)
			break
		}
	}
}

func capOrders(s []models.Order) []models.Order {
	if len(s) > maxLedger {
		return s[:maxLedger]
	}
	return s
}

func capTrades(s []models.Trade) []models.Trade {
	if len(s) > maxLedger {
		return s[:maxLedger]
	}
	return s
}

func capHistory(s []models.PositionHistory) []models.PositionHistory {
	if len(s) > maxLedger {
		return s[:maxLedger]
	}
	return s
}

func reverseOrders(s []models.Order) []models.Order {
	out := make([]models.Order, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func reverseTrades(s []models.Trade) []models.Trade {
	out := make([]models.Trade, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func reverseHistory(s []models.PositionHistory) []models.PositionHistory {
	out := make([]models.PositionHistory, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func parseSeq(id string) uint64 {
	var n uint64
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < '0' || c > '9' {
			n = 0
			continue
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
