package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pocketsync/internal/records"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records TARGET",
		Short: "Inspect the sync records kept in a target root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			target, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			store, err := records.Load(target, false, logger)
			if err != nil {
				if errors.Is(err, records.ErrCorrupt) {
					return fmt.Errorf("record file %s is unusable: %w", store.Path(), err)
				}
				return err
			}
			if store.Len() == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no sync records in %s\n", target)
				return nil
			}

			rows := make([][]string, 0, store.Len())
			for _, record := range store.All() {
				rows = append(rows, []string{
					record.Path,
					record.Format,
					record.Art,
					record.SyncedAt.Local().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Path", "Format", "Art", "Synced"},
				rows,
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d records in %s\n", store.Len(), store.Path())
			return nil
		},
	}
	return cmd
}
