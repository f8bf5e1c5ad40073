package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/config"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sync status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// openDB loads the config and connects to Postgres for admin commands.
func openDB(ctx context.Context) (*postgres.DB, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	defer w.Flush()

	state, err := postgres.NewStateRepo(db).Get(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintln(w, "CURSOR\tnot initialized")
	case err != nil:
		return fmt.Errorf("read state: %w", err)
	default:
		fmt.Fprintf(w, "CURSOR\t%d\n", state.LastIndexedBlock)
		fmt.Fprintf(w, "STATE\t%s\n", state.Status)
		if state.LastError != "" {
			fmt.Fprintf(w, "LAST ERROR\t%s\n", state.LastError)
		}
		fmt.Fprintf(w, "UPDATED\t%s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if pending, err := postgres.NewFailedBlockRepo(db).Count(ctx); err == nil {
		fmt.Fprintf(w, "FAILED BLOCKS\t%d\n", pending)
	}
	if network, err := postgres.NewStatsRepo(db).GetNetworkStats(ctx); err == nil {
		fmt.Fprintf(w, "TOTAL TXS\t%d\n", network.TotalTransactions)
		fmt.Fprintf(w, "TOTAL ADDRESSES\t%d\n", network.TotalAddresses)
		fmt.Fprintf(w, "TOTAL TOKENS\t%d\n", network.TotalTokens)
	}
	return nil
}
