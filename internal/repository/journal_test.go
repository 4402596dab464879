package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/pkg/kv"
)

func TestJournalRoundTrip(t *testing.T) {
	j := NewKVJournal(kv.NewMemoryStore())
	ctx := context.Background()

	orders := []models.Order{{ID: "O2", Time: 2000}, {ID: "O1", Time: 1000}}
	trades := []models.Trade{{ID: "T1", Time: 1500}}
	history := []models.PositionHistory{{ID: "PH1", CloseTime: 1800}}
	if err := j.SaveSnapshot(ctx, orders, trades, history); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotOrders, gotTrades, gotHistory, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(gotOrders) != 2 || gotOrders[0].ID != "O2" {
		t.Fatalf("orders not newest first: %+v", gotOrders)
	}
	if len(gotTrades) != 1 || len(gotHistory) != 1 {
		t.Fatalf("trades/history lost: %d/%d", len(gotTrades), len(gotHistory))
	}
}

func TestJournalLoadEmpty(t *testing.T) {
	j := NewKVJournal(kv.NewMemoryStore())
	orders, trades, history, err := j.Load(context.Background())
	if err != nil {
		t.Fatalf("empty load must not fail: %v", err)
	}
	if len(orders) != 0 || len(trades) != 0 || len(history) != 0 {
		t.Fatalf("empty journal returned data")
	}
}

func TestJournalSortsOnLoad(t *testing.T) {
	j := NewKVJournal(kv.NewMemoryStore())
	ctx := context.Background()
	// stored oldest first: Load must return newest first regardless
	orders := []models.Order{{ID: "O1", Time: 1000}, {ID: "O2", Time: 2000}, {ID: "O3", Time: 3000}}
	if err := j.SaveSnapshot(ctx, orders, nil, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, _, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got[0].ID != "O3" || got[2].ID != "O1" {
		t.Fatalf("orders not sorted newest first: %+v", got)
	}
}

func TestJournalCapsOnSave(t *testing.T) {
	j := NewKVJournal(kv.NewMemoryStore())
	ctx := context.Background()
	orders := make([]models.Order, snapshotCap+50)
	for i := range orders {
		orders[i] = models.Order{ID: fmt.Sprintf("O%d", len(orders)-i), Time: int64(len(orders) - i)}
	}
	if err := j.SaveSnapshot(ctx, orders, nil, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, _, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != snapshotCap {
		t.Fatalf("orders not capped: %d", len(got))
	}
	if got[0].Time != int64(snapshotCap+50) {
		t.Fatalf("cap must keep the newest entries, head time %d", got[0].Time)
	}
}
