package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded once at startup and
// validated eagerly. Malformed simulation parameters are a fatal startup
// error, never a runtime condition.
type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Sim     Sim  `yaml:"sim"`
	Risk    Risk `yaml:"risk"`
	Journal struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"memex"`
	} `yaml:"journal"`
	Archive struct {
		Enabled       bool          `yaml:"enabled"`
		Host          string        `yaml:"host" default:"localhost"`
		Port          int           `yaml:"port" default:"9000"`
		Database      string        `yaml:"database" default:"memex"`
		User          string        `yaml:"user" default:"default"`
		Password      string        `yaml:"password"`
		Table         string        `yaml:"table" default:"sim_ticks"`
		BatchSize     int           `yaml:"batch_size" default:"500"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"5s"`
	} `yaml:"archive"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"memex.ticks"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Async        bool     `yaml:"async" default:"true"`
	} `yaml:"kafka"`
}

// Sim configures the simulation engines.
type Sim struct {
	Seed               string        `yaml:"seed" default:"memex"`
	Symbol             string        `yaml:"symbol" default:"MEME/USDC"`
	TickInterval       time.Duration `yaml:"tick_interval" default:"100ms"`
	Speed              float64       `yaml:"speed" default:"1"`
	TimeframeSec       int           `yaml:"timeframe_sec" default:"1"`
	InitialPrice       float64       `yaml:"initial_price" default:"0.0001"`
	Supply             float64       `yaml:"supply" default:"1000000000"`
	StartRegime        string        `yaml:"start_regime" default:"range"`
	TransitionCheckSec float64       `yaml:"transition_check_sec" default:"30"`
	MeanReversion      struct {
		TauSec   float64 `yaml:"tau_sec" default:"60"`
		Strength float64 `yaml:"strength" default:"0"` // 0 disables reversion
	} `yaml:"mean_reversion"`
	Regimes     map[string]Regime `yaml:"regimes"`
	Transitions map[string][]Edge `yaml:"transitions"`
	Events      map[string]Event  `yaml:"events"`
	Volume      Volume            `yaml:"volume"`
	MaxCandles  int               `yaml:"max_candles" default:"3000"`
	MaxTicks    int               `yaml:"max_ticks" default:"200000"`
}

// Regime holds the jump-diffusion parameters for one market regime.
type Regime struct {
	Mu        float64 `yaml:"mu"`         // drift per simulated second
	Sigma     float64 `yaml:"sigma"`      // diffusion volatility per sqrt-second
	Lambda    float64 `yaml:"lambda"`     // jump intensity per second
	Kappa     float64 `yaml:"kappa"`      // jump size scale
	EventRate float64 `yaml:"event_rate"` // news events per second
}

// Edge is one outgoing transition of the regime graph. A regime with no
// outgoing edges is absorbing.
type Edge struct {
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// Event parameterizes one news event type.
type Event struct {
	ImpactMean  float64 `yaml:"impact_mean"`
	ImpactStd   float64 `yaml:"impact_std"`
	VolBoost    float64 `yaml:"vol_boost"`
	MuBoost     float64 `yaml:"mu_boost"`
	HalfLifeSec float64 `yaml:"half_life_sec"`
	Weight      float64 `yaml:"weight" default:"1"`
	Text        string  `yaml:"text"`
}

// Volume configures the synthetic volume model.
type Volume struct {
	Base       float64 `yaml:"base" default:"120"`
	SigmaScale float64 `yaml:"sigma_scale" default:"2500"`
	RetScale   float64 `yaml:"ret_scale" default:"8000"`
	EwmaAlpha  float64 `yaml:"ewma_alpha" default:"0.15"`
	NoiseStd   float64 `yaml:"noise_std" default:"0.35"`
	Min        float64 `yaml:"min" default:"5"`
	Max        float64 `yaml:"max" default:"50000"`
	DriftStd   float64 `yaml:"drift_std" default:"25"`
	SeasonAmp  float64 `yaml:"season_amp" default:"0.15"`
	SeasonSec  float64 `yaml:"season_sec" default:"300"`
}

// Risk configures order validation and ingress rate limiting.
type Risk struct {
	MaxRiskUsd         float64 `yaml:"max_risk_usd" default:"200"`
	MaxOrdersPerMinute int     `yaml:"max_orders_per_minute" default:"20"`
	FeeBps             float64 `yaml:"fee_bps" default:"0.03"`
	SlippagePct        float64 `yaml:"slippage_pct" default:"0.05"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates eagerly.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillSimDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns the built-in configuration, valid without any YAML file.
func Default() *Config {
	c, err := Parse(nil)
	if err != nil {
		panic(err) // built-in defaults must always validate
	}
	return c
}

// LoadWithEnv loads config from YAML and overrides selected fields from the
// environment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("MEMEX_SEED"); v != "" {
		c.Sim.Seed = v
	}
	if v := os.Getenv("MEMEX_SYMBOL"); v != "" {
		c.Sim.Symbol = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Journal.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	return c, nil
}

// fillSimDefaults installs the built-in regime graph, event catalogue and
// transition table when the file leaves them out. defaults.Set cannot
// populate maps, so this runs after unmarshalling.
func (c *Config) fillSimDefaults() {
	if len(c.Sim.Regimes) == 0 {
		c.Sim.Regimes = map[string]Regime{
			"bull":    {Mu: 0.004, Sigma: 0.020, Lambda: 0.010, Kappa: 0.04, EventRate: 0.020},
			"bear":    {Mu: -0.004, Sigma: 0.025, Lambda: 0.012, Kappa: 0.05, EventRate: 0.020},
			"range":   {Mu: 0.000, Sigma: 0.012, Lambda: 0.004, Kappa: 0.02, EventRate: 0.010},
			"mania":   {Mu: 0.010, Sigma: 0.050, Lambda: 0.040, Kappa: 0.08, EventRate: 0.050},
			"rugrisk": {Mu: -0.008, Sigma: 0.060, Lambda: 0.050, Kappa: 0.10, EventRate: 0.060},
		}
	}
	if len(c.Sim.Transitions) == 0 {
		c.Sim.Transitions = map[string][]Edge{
			"bull":    {{To: "bull", Weight: 0.6}, {To: "range", Weight: 0.25}, {To: "mania", Weight: 0.1}, {To: "bear", Weight: 0.05}},
			"bear":    {{To: "bear", Weight: 0.55}, {To: "range", Weight: 0.3}, {To: "rugrisk", Weight: 0.1}, {To: "bull", Weight: 0.05}},
			"range":   {{To: "range", Weight: 0.7}, {To: "bull", Weight: 0.15}, {To: "bear", Weight: 0.15}},
			"mania":   {{To: "mania", Weight: 0.5}, {To: "bull", Weight: 0.2}, {To: "rugrisk", Weight: 0.2}, {To: "range", Weight: 0.1}},
			"rugrisk": {{To: "rugrisk", Weight: 0.4}, {To: "bear", Weight: 0.4}, {To: "range", Weight: 0.2}},
		}
	}
	if len(c.Sim.Events) == 0 {
		c.Sim.Events = map[string]Event{
			"ct_hype":       {ImpactMean: 0.08, ImpactStd: 0.06, VolBoost: 1.8, MuBoost: 0.002, HalfLifeSec: 45, Weight: 0.5, Text: "CT hype post going viral"},
			"dev_rug_rumor": {ImpactMean: -0.12, ImpactStd: 0.08, VolBoost: 2.2, MuBoost: -0.003, HalfLifeSec: 60, Weight: 0.3, Text: "Dev wallet rumor spreading"},
			"tier3_listing": {ImpactMean: 0.15, ImpactStd: 0.05, VolBoost: 1.5, MuBoost: 0.001, HalfLifeSec: 90, Weight: 0.2, Text: "Listing on tier-3 CEX"},
		}
	}
}

// Validate checks all simulation, risk and infrastructure parameters. It
// fails fast on anything that would corrupt a running simulation.
func (c *Config) Validate() error {
	s := &c.Sim
	if s.TickInterval <= 0 {
		return fmt.Errorf("sim.tick_interval must be positive")
	}
	if s.TimeframeSec < 1 {
		return fmt.Errorf("sim.timeframe_sec must be >= 1")
	}
	if s.InitialPrice <= 0 {
		return fmt.Errorf("sim.initial_price must be positive")
	}
	if s.TransitionCheckSec <= 0 {
		return fmt.Errorf("sim.transition_check_sec must be positive")
	}
	if len(s.Regimes) == 0 {
		return fmt.Errorf("sim.regimes cannot be empty")
	}
	if _, ok := s.Regimes[s.StartRegime]; !ok {
		return fmt.Errorf("sim.start_regime %q is not a defined regime", s.StartRegime)
	}
	for name, r := range s.Regimes {
		if r.Sigma < 0 || r.Lambda < 0 || r.Kappa < 0 || r.EventRate < 0 {
			return fmt.Errorf("sim.regimes.%s: sigma, lambda, kappa and event_rate must be non-negative", name)
		}
	}
	for from, edges := range s.Transitions {
		if _, ok := s.Regimes[from]; !ok {
			return fmt.Errorf("sim.transitions: unknown source regime %q", from)
		}
		for _, e := range edges {
			if _, ok := s.Regimes[e.To]; !ok {
				return fmt.Errorf("sim.transitions.%s: unknown target regime %q", from, e.To)
			}
			if e.Weight < 0 {
				return fmt.Errorf("sim.transitions.%s -> %s: weight must be non-negative", from, e.To)
			}
		}
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("sim.events cannot be empty")
	}
	for name, e := range s.Events {
		if e.HalfLifeSec <= 0 {
			return fmt.Errorf("sim.events.%s: half_life_sec must be positive", name)
		}
		if e.VolBoost <= 0 {
			return fmt.Errorf("sim.events.%s: vol_boost must be positive", name)
		}
		if e.ImpactStd < 0 {
			return fmt.Errorf("sim.events.%s: impact_std must be non-negative", name)
		}
		if e.Weight < 0 {
			return fmt.Errorf("sim.events.%s: weight must be non-negative", name)
		}
	}
	v := &s.Volume
	if v.EwmaAlpha <= 0 || v.EwmaAlpha > 1 {
		return fmt.Errorf("sim.volume.ewma_alpha must be in (0, 1]")
	}
	if v.Min < 0 || v.Max < v.Min {
		return fmt.Errorf("sim.volume: require 0 <= min <= max")
	}
	if s.MaxCandles < 1 || s.MaxTicks < 1 {
		return fmt.Errorf("sim.max_candles and sim.max_ticks must be >= 1")
	}
	if c.Risk.MaxRiskUsd <= 0 {
		return fmt.Errorf("risk.max_risk_usd must be positive")
	}
	if c.Risk.MaxOrdersPerMinute < 1 {
		return fmt.Errorf("risk.max_orders_per_minute must be >= 1")
	}
	if c.Risk.FeeBps < 0 || c.Risk.SlippagePct < 0 {
		return fmt.Errorf("risk: fee_bps and slippage_pct must be non-negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
