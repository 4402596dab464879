package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/internal/domain/repository"
	"github.com/lotoos0/memex-sim/pkg/kv"
)

const (
	keyOrders  = "orders"
	keyTrades  = "trades"
	keyHistory = "position_history"

	snapshotCap = 2000
)

// KVJournal persists ledger snapshots to an opaque key-value blob store.
// Each ledger is one JSON blob capped at the most recent entries; loads
// return entries newest first.
type KVJournal struct {
	store kv.Store
}

// NewKVJournal wraps a kv.Store.
func NewKVJournal(store kv.Store) repository.Journal {
	return &KVJournal{store: store}
}

func (j *KVJournal) SaveSnapshot(ctx context.Context, orders []models.Order, trades []models.Trade, history []models.PositionHistory) error {
	if len(orders) > snapshotCap {
		orders = orders[:snapshotCap]
	}
	if len(trades) > snapshotCap {
		trades = trades[:snapshotCap]
	}
	if len(history) > snapshotCap {
		history = history[:snapshotCap]
	}
	if err := j.store.Set(ctx, keyOrders, orders); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	if err := j.store.Set(ctx, keyTrades, trades); err != nil {
		return fmt.Errorf("save trades: %w", err)
	}
	if err := j.store.Set(ctx, keyHistory, history); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (j *KVJournal) Load(ctx context.Context) ([]models.Order, []models.Trade, []models.PositionHistory, error) {
	var orders []models.Order
	if err := j.store.Get(ctx, keyOrders, &orders); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("load orders: %w", err)
	}
	var trades []models.Trade
	if err := j.store.Get(ctx, keyTrades, &trades); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("load trades: %w", err)
	}
	var history []models.PositionHistory
	if err := j.store.Get(ctx, keyHistory, &history); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("load history: %w", err)
	}

	sort.SliceStable(orders, func(a, b int) bool { return orders[a].Time > orders[b].Time })
	sort.SliceStable(trades, func(a, b int) bool { return trades[a].Time > trades[b].Time })
	sort.SliceStable(history, func(a, b int) bool { return history[a].CloseTime > history[b].CloseTime })

	if len(orders) > snapshotCap {
		orders = orders[:snapshotCap]
	}
	if len(trades) > snapshotCap {
		trades = trades[:snapshotCap]
	}
	if len(history) > snapshotCap {
		history = history[:snapshotCap]
	}
	return orders, trades, history, nil
}

func (j *KVJournal) Close() error {
	return j.store.Close()
}
