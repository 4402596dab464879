package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/lotoos0/memex-sim/internal/di"
	"github.com/lotoos0/memex-sim/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("config load failed: %v", err)
		}
		log.Printf("no config file at %s, using built-in defaults", *configPath)
		cfg = config.Default()
	}

	log.Printf("env=%s symbol=%s seed=%s", cfg.Environment, cfg.Sim.Symbol, cfg.Sim.Seed)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
