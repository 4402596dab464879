package engine

import (
	"math"

	"github.com/lotoos0/memex-sim/internal/domain/models"
)

// CandleAggregator folds a tick stream into fixed-width OHLCV candles. The
// history is capped with truncate-on-insert; changing the bucket width means
// constructing a fresh aggregator and replaying the retained ticks.
type CandleAggregator struct {
	tfSec   int64
	maxLen  int
	candles []models.Candle
}

// NewCandleAggregator creates an aggregator with the given bucket width in
// seconds and history cap.
func NewCandleAggregator(tfSec int, maxLen int) *CandleAggregator {
	if tfSec < 1 {
		tfSec = 1
	}
	if maxLen < 1 {
		maxLen = 1
	}
	return &CandleAggregator{tfSec: int64(tfSec), maxLen: maxLen}
}

// TimeframeSec returns the bucket width.
func (a *CandleAggregator) TimeframeSec() int { return int(a.tfSec) }

// Reset clears all candles.
func (a *CandleAggregator) Reset() { a.candles = nil }

// PushTick folds one tick into the series. It either opens a new candle for
// a fresh bucket or mutates the last candle in place.
func (a *CandleAggregator) PushTick(tMs int64, price, volume float64) models.CandleDelta {
	bucket := (tMs / 1000) / a.tfSec * a.tfSec

	if n := len(a.candles); n == 0 || a.candles[n-1].Time != bucket {
		c := models.Candle{Time: bucket, Open: price, High: price, Low: price, Close: price, Volume: volume}
		a.candles = append(a.candles, c)
		if len(a.candles) > a.maxLen {
			a.candles = a.candles[len(a.candles)-a.maxLen:]
		}
		return models.CandleDelta{Mode: models.CandleNew, Candle: c}
	}

	last := &a.candles[len(a.candles)-1]
	last.High = math.Max(last.High, price)
	last.Low = math.Min(last.Low, price)
	last.Close = price
	last.Volume += volume
	return models.CandleDelta{Mode: models.CandleUpdate, Candle: *last}
}

// Series returns a copy of the candle history, oldest first.
func (a *CandleAggregator) Series() []models.Candle {
	out := make([]models.Candle, len(a.candles))
	copy(out, a.candles)
	return out
}

// Len returns the number of retained candles.
func (a *CandleAggregator) Len() int { return len(a.candles) }
