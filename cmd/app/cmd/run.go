package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"order_actor/internal/app"

	"github.com/spf13/cobra"

	_ "net/http/pprof" // For pprof profiling
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the book, the feeds and the HTTP API",
	Long: `Start the book actor with the configured investment cap, run every feed
from the config file and serve the HTTP API until interrupted.

Example:
  order-actor run --config configs/config.yaml`,
	RunE: runRun,
}

var pprofAddr string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&pprofAddr, "pprof", "", "serve pprof on this address (e.g. localhost:6060)")
}

func runRun(cmd *cobra.Command, args []string) error {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap(configPath)
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		bootstrap.Close()
		return err
	}
	defer bootstrap.Close()

	// 2. Pprof Server (for performance profiling)
	if pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bootstrap.Run(ctx)
}
