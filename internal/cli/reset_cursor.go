package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage/postgres"
)

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [block_height]",
	Short: "Reset the sync cursor to a given block height",
	Long:  `Rewinds or advances the sync cursor. The next pass starts at block_height+1; already stored rows are left untouched.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) error {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid block height %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.NewStateRepo(db).SetCursor(ctx, height); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}

	cmd.Printf("cursor set to block %d\n", height)
	return nil
}
