package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pocketsync/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check SOURCE TARGET",
		Short: "Run the pre-sync environment checks and report each result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, target, err := resolveRoots(args)
			if err != nil {
				return err
			}

			results := preflight.Run(source, target, cfg.Tools.FFmpeg, cfg.Tools.FFprobe, 0)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				status := "ok"
				if !result.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{result.Name, status, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
			))

			if failure, failed := preflight.FirstFailure(results); failed {
				return fmt.Errorf("preflight failed: %s", failure.Name)
			}
			return nil
		},
	}
	return cmd
}
