package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"order_actor/internal/domain"
	"order_actor/internal/infra"
	"order_actor/internal/infra/storage"

	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List journaled orders",
	Long: `Read processed orders back from the journal database named in the config.

Examples:
  order-actor orders --limit 20
  order-actor orders --instrument BTC`,
	RunE: runOrders,
}

var (
	ordersLimit      int
	ordersInstrument string
)

func init() {
	rootCmd.AddCommand(ordersCmd)

	ordersCmd.Flags().IntVarP(&ordersLimit, "limit", "n", 50, "number of most recent orders")
	ordersCmd.Flags().StringVar(&ordersInstrument, "instrument", "", "only orders for this instrument (oldest first)")
}

func runOrders(cmd *cobra.Command, args []string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	journal, err := storage.NewJournal(cfg.Storage.DBPath, 1)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	ctx := context.Background()
	var orders []domain.ProcessedOrder
	if ordersInstrument != "" {
		orders, err = journal.ListByInstrument(ctx, ordersInstrument)
	} else {
		orders, err = journal.List(ctx, ordersLimit)
	}
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}

	total, err := journal.Count(ctx)
	if err != nil {
		return fmt.Errorf("count journal: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tINSTRUMENT\tAMOUNT\tSTATUS\tINVESTED\tAVAILABLE\tPROCESSED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Kind, o.Instrument, o.Amount.StringFixed(2), o.Status,
			o.TotalInvested.StringFixed(2), o.Available.StringFixed(2),
			o.ProcessedAt.Format("2006-01-02 15:04:05"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d orders\n", len(orders), total)
	return nil
}
