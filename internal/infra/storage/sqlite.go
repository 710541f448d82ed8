package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"order_actor/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultBufferSize = 256

// Journal appends processed orders to SQLite.
//
// Record only enqueues: a writer goroutine does the inserts, and when the
// buffer is full the record is dropped and counted. Write errors are logged,
// never returned to the book.
type Journal struct {
	db     *gorm.DB
	queue  chan domain.ProcessedOrder
	onDrop func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewJournal opens (or creates) the database at dbPath and starts the writer.
func NewJournal(dbPath string, bufferSize int) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newJournal(db, bufferSize)
}

func newJournal(db *gorm.DB, bufferSize int) (*Journal, error) {
	if err := db.AutoMigrate(&domain.ProcessedOrder{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if bufferSize < 1 {
		bufferSize = defaultBufferSize
	}

	j := &Journal{
		db:    db,
		queue: make(chan domain.ProcessedOrder, bufferSize),
	}
	j.wg.Add(1)
	go j.writeLoop()
	return j, nil
}

// OnDrop registers a callback run whenever a record is discarded.
// Call it before the journal is handed to the book.
func (j *Journal) OnDrop(fn func()) {
	j.onDrop = fn
}

// Record implements domain.OrderSink.
func (j *Journal) Record(order domain.ProcessedOrder) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.drop(order, "journal closed")
		return
	}

	select {
	case j.queue <- order:
	default:
		j.drop(order, "journal buffer full")
	}
}

func (j *Journal) drop(order domain.ProcessedOrder, reason string) {
	j.dropped.Add(1)
	if j.onDrop != nil {
		j.onDrop()
	}
	slog.Warn("Order not journaled", slog.String("id", order.ID), slog.String("reason", reason))
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()
	for order := range j.queue {
		if err := j.db.Create(&order).Error; err != nil {
			j.failed.Add(1)
			slog.Error("Failed to journal order", slog.String("id", order.ID), slog.Any("error", err))
			continue
		}
		j.written.Add(1)
	}
}

// Close stops accepting records, flushes what is buffered and closes the DB.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	j.wg.Wait()

	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Stats returns how many records were written, dropped and failed.
func (j *Journal) Stats() (written, dropped, failed uint64) {
	return j.written.Load(), j.dropped.Load(), j.failed.Load()
}

// ======================================================================================
// Queries
// ======================================================================================

// List returns the most recent journaled orders, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]domain.ProcessedOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []domain.ProcessedOrder
	err := j.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&orders).Error
	return orders, err
}

// Count returns the number of journaled orders.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.WithContext(ctx).Model(&domain.ProcessedOrder{}).Count(&n).Error
	return n, err
}

// ListByInstrument returns journaled orders for one instrument, oldest first.
func (j *Journal) ListByInstrument(ctx context.Context, instrument string) ([]domain.ProcessedOrder, error) {
	var orders []domain.ProcessedOrder
	err := j.db.WithContext(ctx).Where("instrument = ?", instrument).Order("id asc").Find(&orders).Error
	return orders, err
}
