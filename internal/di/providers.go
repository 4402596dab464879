package di

import (
	"context"
	"fmt"
	"time"

	"github.com/lotoos0/memex-sim/internal/domain/repository"
	"github.com/lotoos0/memex-sim/internal/handler/api"
	"github.com/lotoos0/memex-sim/internal/handler/ws"
	internalrepo "github.com/lotoos0/memex-sim/internal/repository"
	"github.com/lotoos0/memex-sim/internal/usecase"
	pkgch "github.com/lotoos0/memex-sim/pkg/clickhouse"
	"github.com/lotoos0/memex-sim/pkg/config"
	pkgkafka "github.com/lotoos0/memex-sim/pkg/kafka"
	"github.com/lotoos0/memex-sim/pkg/kv"
	"github.com/lotoos0/memex-sim/pkg/logger"
	"github.com/lotoos0/memex-sim/pkg/metrics"
	"github.com/lotoos0/memex-sim/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideJournal creates the snapshot journal. Disabled journals fall back
// to an in-memory store so the pipeline shape stays the same.
func ProvideJournal(cfg *config.Config) (repository.Journal, error) {
	if !cfg.Journal.Enabled {
		return internalrepo.NewKVJournal(kv.NewMemoryStore()), nil
	}
	store, err := kv.NewRedisStore(kv.RedisConfig{
		Addr:     cfg.Journal.Addr,
		Password: cfg.Journal.Password,
		DB:       cfg.Journal.DB,
		Prefix:   cfg.Journal.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("journal store: %w", err)
	}
	return internalrepo.NewKVJournal(store), nil
}

// ProvideTickArchive creates the ClickHouse tick archive, or a no-op sink
// when archiving is disabled.
func ProvideTickArchive(cfg *config.Config) (repository.TickArchive, error) {
	if !cfg.Archive.Enabled {
		return internalrepo.NewNopArchive(), nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Archive.Host),
		pkgch.WithPort(cfg.Archive.Port),
		pkgch.WithDatabase(cfg.Archive.Database),
		pkgch.WithCredentials(cfg.Archive.User, cfg.Archive.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	archive, err := internalrepo.NewClickHouseTickArchive(ctx, client, cfg.Archive.Table, cfg.Archive.BatchSize)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return archive, nil
}

// ProvidePublisher creates the Kafka tick publisher, or a no-op sink when
// Kafka is disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewNopPublisher(), nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideHub creates the websocket broadcast hub.
func ProvideHub(log *logger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideSimulation builds the tick pipeline.
func ProvideSimulation(
	cfg *config.Config,
	log *logger.Logger,
	journal repository.Journal,
	archive repository.TickArchive,
	publisher repository.Publisher,
	hub *ws.Hub,
	m repository.Metrics,
) *usecase.Simulation {
	return usecase.New(cfg, log, journal, archive, publisher, hub, m)
}

// ProvideTradingHandler creates the HTTP API handler.
func ProvideTradingHandler(log *logger.Logger, sim *usecase.Simulation) *api.TradingHandler {
	return api.NewTradingHandler(log, sim)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	sim *usecase.Simulation,
	handler *api.TradingHandler,
	hub *ws.Hub,
	journal repository.Journal,
	archive repository.TickArchive,
	publisher repository.Publisher,
) *server.App {
	return server.New(cfg, log, sim, handler, hub, journal, archive, publisher)
}
