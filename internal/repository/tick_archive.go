package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/internal/domain/repository"
	"github.com/lotoos0/memex-sim/pkg/clickhouse"
)

// ClickHouseTickArchive batches simulated ticks and writes them to a
// ClickHouse table in a single multi-row insert per flush. Append is cheap;
// the batch flushes when it reaches batchSize or when Flush is called.
type ClickHouseTickArchive struct {
	client    *clickhouse.Client
	table     string
	batchSize int

	mu    sync.Mutex
	batch []archivedTick
}

type archivedTick struct {
	symbol string
	tick   models.Tick
}

// NewClickHouseTickArchive creates the archive and its backing table.
func NewClickHouseTickArchive(ctx context.Context, client *clickhouse.Client, table string, batchSize int) (repository.TickArchive, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol  LowCardinality(String),
			ts      DateTime64(3),
			price   Float64,
			volume  Float64
		) ENGINE = MergeTree()
		ORDER BY (symbol, ts)
		TTL toDateTime(ts) + INTERVAL 30 DAY`, table)
	if err := client.InitSchema(ctx, []string{ddl}); err != nil {
		return nil, fmt.Errorf("create tick table: %w", err)
	}
	return &ClickHouseTickArchive{
		client:    client,
		table:     table,
		batchSize: batchSize,
		batch:     make([]archivedTick, 0, batchSize),
	}, nil
}

func (a *ClickHouseTickArchive) Append(ctx context.Context, symbol string, tick models.Tick) error {
	a.mu.Lock()
	a.batch = append(a.batch, archivedTick{symbol: symbol, tick: tick})
	full := len(a.batch) >= a.batchSize
	a.mu.Unlock()
	if full {
		return a.Flush(ctx)
	}
	return nil
}

// Flush writes the pending batch. The batch is taken under the lock but the
// insert runs outside it so Append never blocks on ClickHouse.
func (a *ClickHouseTickArchive) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.batch) == 0 {
		a.mu.Unlock()
		return nil
	}
	pending := a.batch
	a.batch = make([]archivedTick, 0, a.batchSize)
	a.mu.Unlock()

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tick batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, ts, price, volume) VALUES (?, ?, ?, ?)", a.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare tick insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range pending {
		if _, err := stmt.ExecContext(ctx, row.symbol, time.UnixMilli(row.tick.Time), row.tick.Price, row.tick.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append tick row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tick batch: %w", err)
	}
	return nil
}

func (a *ClickHouseTickArchive) Close() error {
	ctx := context.Background()
	if err := a.Flush(ctx); err != nil {
		return err
	}
	return a.client.Close()
}
