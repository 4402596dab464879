package engine

import (
	"math"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/pkg/config"
)

// PriceEngine advances a regime-switching jump-diffusion one step at a time
// and derives a synthetic volume for each step. All randomness flows through
// the shared RNG, so a fixed seed and call sequence reproduces the exact
// price path.
type PriceEngine struct {
	cfg *config.Sim
	rng *RNG

	regime string
	price  float64

	// user-adjustable scales
	volScale    float64
	volumeScale float64

	// simulated time and regime transitions
	simTimeMs        float64
	nextTransitionMs float64

	// mean-reversion anchor: EMA of log-price
	mrAnchor float64

	// volume model state
	volEwma  float64 // EWMA of |logReturn|
	volDrift float64 // slow AR(1) drift
}

// NewPriceEngine starts the process at the configured initial price and
// regime.
func NewPriceEngine(cfg *config.Sim, rng *RNG) *PriceEngine {
	return &PriceEngine{
		cfg:         cfg,
		rng:         rng,
		regime:      cfg.StartRegime,
		price:       cfg.InitialPrice,
		volScale:    1,
		volumeScale: 1,
		mrAnchor:    cfg.InitialPrice,
	}
}

// Reset restores the initial price, regime and all derived state.
func (p *PriceEngine) Reset() {
	p.price = p.cfg.InitialPrice
	p.regime = p.cfg.StartRegime
	p.simTimeMs = 0
	p.nextTransitionMs = 0
	p.mrAnchor = p.price
	p.volEwma = 0
	p.volDrift = 0
}

// SetVolatilityScale adjusts the diffusion volatility, floored at 0.2.
func (p *PriceEngine) SetVolatilityScale(mult float64) {
	p.volScale = math.Max(0.2, mult)
}

// SetVolumeScale adjusts the volume output, clamped to [0.1, 5].
func (p *PriceEngine) SetVolumeScale(mult float64) {
	p.volumeScale = math.Max(0.1, math.Min(5, mult))
}

// Regime returns the current market regime.
func (p *PriceEngine) Regime() string { return p.regime }

// Price returns the current price.
func (p *PriceEngine) Price() float64 { return p.price }

// Step advances the process by dtSec under the given event impact summary
// and returns the new price and the step's volume.
func (p *PriceEngine) Step(dtSec float64, impact models.EventImpact) (price, volume float64) {
	rc := p.cfg.Regimes[p.regime]
	sigmaEff := rc.Sigma * p.volScale * impact.VolBoostMul
	muEff := rc.Mu + impact.DriftBoost

	// Poisson jumps
	nJumps := p.rng.Poisson(math.Max(0, rc.Lambda*dtSec))
	jump := 0.0
	for i := 0; i < nJumps; i++ {
		jump += p.rng.Normal() * rc.Kappa
	}

	// diffusion log-return
	dLog := muEff*dtSec + sigmaEff*math.Sqrt(math.Max(1e-6, dtSec))*p.rng.Normal() + jump

	// mean reversion against a slow EMA anchor of log-price
	tau := math.Max(5, p.cfg.MeanReversion.TauSec)
	w := math.Min(1, math.Max(0, dtSec/tau))
	anchor := p.mrAnchor
	if anchor <= 0 {
		anchor = p.price
	}
	p.mrAnchor = math.Exp((1-w)*math.Log(anchor) + w*math.Log(p.price))
	strength := math.Max(0, p.cfg.MeanReversion.Strength)
	dev := math.Log(p.price / p.mrAnchor)
	dLogTotal := dLog - strength*dev*dtSec

	// price update: diffusion plus the one-time event jump, floored so the
	// price can never go non-positive
	p.price *= math.Exp(dLogTotal)
	p.price *= math.Max(0.01, impact.PriceJumpMul)

	// volume model
	vc := &p.cfg.Volume
	p.volEwma = vc.EwmaAlpha*math.Abs(dLog) + (1-vc.EwmaAlpha)*p.volEwma
	p.volDrift = 0.95*p.volDrift + vc.DriftStd*p.rng.Normal()

	tSec := p.simTimeMs / 1000
	season := 1 + vc.SeasonAmp*math.Sin(2*math.Pi*tSec/vc.SeasonSec)
	volDet := vc.Base + vc.SigmaScale*sigmaEff + vc.RetScale*p.volEwma + p.volDrift
	noiseMul := math.Exp(vc.NoiseStd * p.rng.Normal())

	vol := volDet * season * noiseMul * impact.VolBoostMul * p.volumeScale
	// dampen small steps so high-frequency ticks do not explode volume
	vol *= math.Max(0.5, math.Sqrt(dtSec)*2)
	vol = math.Max(vc.Min, math.Min(vc.Max, vol))

	// periodic regime transition check on simulated time
	p.simTimeMs += dtSec * 1000
	if p.simTimeMs >= p.nextTransitionMs {
		p.nextTransitionMs = p.simTimeMs + p.cfg.TransitionCheckSec*1000
		p.regime = p.sampleTransition(p.regime)
	}

	return p.price, vol
}

// sampleTransition draws the next regime from the weighted-edge table. A
// regime without outgoing edges is absorbing; floating rounding falls back
// to the last edge.
func (p *PriceEngine) sampleTransition(from string) string {
	edges := p.cfg.Transitions[from]
	if len(edges) == 0 {
		return from
	}
	sum := 0.0
	for _, e := range edges {
		sum += e.Weight
	}
	if sum == 0 {
		sum = 1
	}
	u := p.rng.Next() * sum
	for _, e := range edges {
		u -= e.Weight
		if u <= 0 {
			return e.To
		}
	}
	return edges[len(edges)-1].To
}
