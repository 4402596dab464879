package ledger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/pkg/config"
)

// ValidateRisk checks an order against the configured limits before it is
// accepted. A rejection carries a reason and leaves all state untouched.
func ValidateRisk(o *models.Order, lastPrice float64, limits config.Risk, pos *models.Position) error {
	if o.Qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}
	slPct := 0.01
	if o.SlPct != nil {
		slPct = math.Abs(*o.SlPct)
	}
	// simplified dollar-risk proxy: quantity is already denominated in quote
	if riskUsd := o.Qty * slPct; riskUsd > limits.MaxRiskUsd {
		return fmt.Errorf("risk %.2f exceeds max %.2f", riskUsd, limits.MaxRiskUsd)
	}
	if o.ReduceOnly {
		if pos == nil || pos.Qty <= 0 {
			return fmt.Errorf("reduce-only without open position")
		}
		if pos.Side == o.Side {
			return fmt.Errorf("reduce-only order would increase exposure")
		}
	}
	return nil
}

// RateLimiter is a fixed 60-second rolling-window counter for order ingress.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	windowStart time.Time
	count       int
}

// NewRateLimiter accepts up to limit calls per rolling minute.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{limit: limit}
}

// Allow consumes one slot. Once the window expires the counter resets.
func (l *RateLimiter) Allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.windowStart) > time.Minute {
		l.windowStart = now
		l.count = 0
	}
	l.count++
	return l.count <= l.limit
}
