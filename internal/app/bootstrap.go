package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"order_actor/internal/api"
	"order_actor/internal/domain"
	"order_actor/internal/engine"
	"order_actor/internal/infra"
	"order_actor/internal/infra/storage"
	"order_actor/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config  *infra.Config
	Journal *storage.Journal
	Metrics *infra.Metrics
	Hub     *api.Hub
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize performs core system initialization (config, logger, DB)
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping order actor...", slog.String("config", b.ConfigPath))

	// 3. Observers
	b.Metrics = &infra.Metrics{}
	b.Hub = api.NewHub()
	b.Hub.OnDrop(b.Metrics.RecordSinkDrop)

	// 4. Initialize Journal (DB)
	if cfg.Storage.DBPath != "" {
		journal, err := storage.NewJournal(cfg.Storage.DBPath, cfg.Storage.BufferSize)
		if err != nil {
			return err
		}
		journal.OnDrop(b.Metrics.RecordSinkDrop)
		b.Journal = journal
		slog.Info("✅ Journal initialized", slog.String("path", cfg.Storage.DBPath))
	}

	return nil
}

func (b *Bootstrap) sinks() []domain.OrderSink {
	sinks := []domain.OrderSink{b.Metrics, b.Hub}
	if b.Journal != nil {
		sinks = append(sinks, b.Journal)
	}
	return sinks
}

// Run starts the book, the HTTP host and the configured feeds, and blocks
// until the feeds are done and, when HTTP is enabled, until ctx is done.
//
// Shutdown order: producers stop, the inbox closes once the last sender is
// released, the book drains and stops, then the journal is flushed.
func (b *Bootstrap) Run(ctx context.Context) error {
	if b.Config == nil {
		return ErrNotInitialized
	}
	cfg := b.Config

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go b.Hub.Run(hubCtx)

	// The book outlives ctx so queued orders are still answered.
	bookCtx, stopBook := context.WithCancel(context.Background())
	defer stopBook()

	inbox, root := engine.NewInbox(cfg.Book.InboxCapacity)
	book := engine.NewBookActor(inbox, cfg.Book.InvestmentCap, b.sinks()...)
	go book.Run(bookCtx)
	slog.InfoContext(ctx, "✅ Book actor started")

	var server *api.Server
	serverErr := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		apiSender, err := root.Clone()
		if err != nil {
			root.Release()
			return err
		}
		server = api.NewServer(api.Options{
			Addr:           cfg.HTTP.Addr,
			StaticDir:      cfg.HTTP.StaticDir,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			ReplyTimeout:   cfg.Book.ReplyTimeout,
			Metrics:        b.Metrics,
			Orders:         b.orders(),
			Sender:         apiSender,
			Book:           book,
			Hub:            b.Hub,
		})
		go func() {
			serverErr <- server.Start()
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results := service.RunAll(ctx, cfg.Feeds, root, cfg.Book.ReplyTimeout)
		for _, r := range results {
			slog.Info("Feed finished",
				slog.String("feed", r.Name),
				slog.Int("submitted", r.Submitted),
				slog.Int("accepted", r.Accepted),
				slog.Int("rejected", r.Rejected),
				slog.Int("errors", r.Errors))
		}
	}()

	var runErr error
	if server != nil {
		slog.InfoContext(ctx, "✨ Order actor fully operational. Press Ctrl+C to exit.")
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				slog.Error("HTTP server failed", slog.Any("error", err))
				runErr = err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown incomplete", slog.Any("error", err))
		}
		cancel()
	}

	// With HTTP gone, the feeds hold the last senders.
	wg.Wait()

	select {
	case <-book.Done():
	case <-time.After(shutdownTimeout):
		slog.Warn("Book did not drain in time, stopping it")
		stopBook()
		<-book.Done()
	}
	slog.Info("👋 Book stopped", slog.Uint64("processed", book.Processed()))

	return runErr
}

func (b *Bootstrap) orders() domain.OrderRepository {
	if b.Journal == nil {
		return nil
	}
	return b.Journal
}

// Close flushes and closes the journal.
func (b *Bootstrap) Close() error {
	if b.Journal == nil {
		return nil
	}
	if err := b.Journal.Close(); err != nil {
		return err
	}
	written, dropped, failed := b.Journal.Stats()
	slog.Info("Journal closed",
		slog.Uint64("written", written),
		slog.Uint64("dropped", dropped),
		slog.Uint64("failed", failed))
	return nil
}

// ErrNotInitialized is returned by Run before Initialize succeeded.
var ErrNotInitialized = errors.New("bootstrap not initialized")
