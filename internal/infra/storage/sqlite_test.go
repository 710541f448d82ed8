package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"order_actor/internal/domain"
	"order_actor/internal/infra/id"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTestJournal(t *testing.T, bufferSize int) *Journal {
	dbName := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	j, err := newJournal(db, bufferSize)
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func order(kind domain.OrderKind, instrument string, amount int64, status domain.ReplyStatus) domain.ProcessedOrder {
	return domain.ProcessedOrder{
		ID:            id.New(),
		Kind:          kind,
		Instrument:    instrument,
		Amount:        decimal.NewFromInt(amount),
		Status:        status,
		TotalInvested: decimal.NewFromInt(amount),
		Available:     decimal.NewFromInt(100 - amount),
		Delivered:     true,
		ProcessedAt:   time.Now(),
	}
}

func TestJournal_CloseFlushes(t *testing.T) {
	j := setupTestJournal(t, 16)

	j.Record(order(domain.OrderKindBuy, "BTC", 5, domain.ReplySuccess))
	j.Record(order(domain.OrderKindSell, "ETH", 10, domain.ReplySuccess))
	j.Record(order(domain.OrderKindBuy, "BTC", 95, domain.ReplyFail))

	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	written, dropped, failed := j.Stats()
	if written != 3 || dropped != 0 || failed != 0 {
		t.Errorf("Expected 3/0/0, got %d/%d/%d", written, dropped, failed)
	}
}

func TestJournal_Queries(t *testing.T) {
	j := setupTestJournal(t, 16)
	ctx := context.Background()

	orders := []domain.ProcessedOrder{
		order(domain.OrderKindBuy, "BTC", 5, domain.ReplySuccess),
		order(domain.OrderKindSell, "ETH", 10, domain.ReplySuccess),
		order(domain.OrderKindBuy, "BTC", 95, domain.ReplyFail),
	}
	for _, o := range orders {
		j.Record(o)
	}
	waitWritten(t, j, 3)

	n, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 orders, got %d", n)
	}

	latest, err := j.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(latest))
	}
	if latest[0].ID != orders[2].ID {
		t.Errorf("Expected newest first, got %s", latest[0].ID)
	}
	if latest[0].Status != domain.ReplyFail || latest[0].Kind != domain.OrderKindBuy {
		t.Errorf("Fields not round-tripped: %+v", latest[0])
	}
	if !latest[0].Amount.Equal(decimal.NewFromInt(95)) {
		t.Errorf("Expected amount 95, got %s", latest[0].Amount)
	}

	btc, err := j.ListByInstrument(ctx, "BTC")
	if err != nil {
		t.Fatalf("ListByInstrument failed: %v", err)
	}
	if len(btc) != 2 || btc[0].ID != orders[0].ID {
		t.Errorf("Expected 2 BTC orders oldest first, got %d", len(btc))
	}
}

func TestJournal_DropsWhenClosed(t *testing.T) {
	j := setupTestJournal(t, 1)

	drops := 0
	j.OnDrop(func() { drops++ })

	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	j.Record(order(domain.OrderKindBuy, "BTC", 1, domain.ReplySuccess))

	_, dropped, _ := j.Stats()
	if dropped != 1 || drops != 1 {
		t.Errorf("Expected 1 drop, got %d (callback %d)", dropped, drops)
	}
}

func TestJournal_ImplementsInterfaces(t *testing.T) {
	var _ domain.OrderSink = (*Journal)(nil)
	var _ domain.OrderRepository = (*Journal)(nil)
}

func waitWritten(t *testing.T, j *Journal, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if written, _, _ := j.Stats(); written >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("journal did not write %d orders in time", want)
}
