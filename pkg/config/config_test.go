package config

import (
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("built-in defaults must validate: %v", err)
	}
	if c.Sim.TickInterval.Milliseconds() != 100 {
		t.Fatalf("default tick interval = %v", c.Sim.TickInterval)
	}
	if _, ok := c.Sim.Regimes[c.Sim.StartRegime]; !ok {
		t.Fatalf("start regime %q missing from regime set", c.Sim.StartRegime)
	}
	if len(c.Sim.Events) == 0 {
		t.Fatalf("default event catalogue is empty")
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte("sim:\n  seed: custom\n  timeframe_sec: 5\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sim.Seed != "custom" {
		t.Fatalf("seed override lost: %q", c.Sim.Seed)
	}
	if c.Sim.TimeframeSec != 5 {
		t.Fatalf("timeframe override lost: %d", c.Sim.TimeframeSec)
	}
	// untouched fields keep their defaults
	if c.Server.Port != 8080 {
		t.Fatalf("server port default lost: %d", c.Server.Port)
	}
}

func TestParseRejectsBadHalfLife(t *testing.T) {
	yaml := `
sim:
  events:
    broken:
      impact_mean: 0.1
      impact_std: 0.05
      vol_boost: 1.5
      half_life_sec: 0
`
	if _, err := Parse([]byte(yaml)); err == nil {
		t.Fatalf("zero half-life must fail validation")
	}
}

func TestParseRejectsUnknownStartRegime(t *testing.T) {
	if _, err := Parse([]byte("sim:\n  start_regime: nope\n")); err == nil {
		t.Fatalf("unknown start regime must fail validation")
	}
}

func TestParseRejectsUnknownTransitionTarget(t *testing.T) {
	yaml := `
sim:
  transitions:
    range:
      - to: nowhere
        weight: 1
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatalf("unknown transition target must fail validation")
	}
	if !strings.Contains(err.Error(), "nowhere") {
		t.Fatalf("error should name the bad target: %v", err)
	}
}

func TestParseRejectsBadEwmaAlpha(t *testing.T) {
	if _, err := Parse([]byte("sim:\n  volume:\n    ewma_alpha: 1.5\n")); err == nil {
		t.Fatalf("ewma_alpha above 1 must fail validation")
	}
}

func TestParseRejectsKafkaWithoutBrokers(t *testing.T) {
	if _, err := Parse([]byte("kafka:\n  enabled: true\n")); err == nil {
		t.Fatalf("enabled kafka without brokers must fail validation")
	}
}

func TestParseRejectsNonPositiveRisk(t *testing.T) {
	if _, err := Parse([]byte("risk:\n  max_risk_usd: 0\n")); err == nil {
		t.Fatalf("zero risk budget must fail validation")
	}
}
