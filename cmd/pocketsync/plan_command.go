package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pocketsync/internal/library"
	"pocketsync/internal/logging"
	"pocketsync/internal/plan"
	"pocketsync/internal/preflight"
	"pocketsync/internal/records"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags outputFlags
	var force bool
	var showAll bool

	cmd := &cobra.Command{
		Use:   "plan SOURCE TARGET",
		Short: "Show what a sync would do without touching the target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			source, target, err := resolveRoots(args)
			if err != nil {
				return err
			}
			encoding, err := resolveEncoding(cmd, cfg, flags)
			if err != nil {
				return err
			}
			strategy, err := resolveArtStrategy(cfg, flags)
			if err != nil {
				return err
			}

			if r := preflight.CheckSourceRoot(source); !r.Passed {
				return fmt.Errorf("%s: %s", r.Name, r.Detail)
			}
			if r := preflight.CheckTargetRoot(target); !r.Passed {
				return fmt.Errorf("%s: %s", r.Name, r.Detail)
			}

			// Read-only store: planning must not create or touch records.
			store, err := records.Load(target, false, logger)
			if err != nil && errors.Is(err, records.ErrCorrupt) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: sync records are corrupt; re-examining the full library")
			}

			scanner := library.NewScanner(library.Options{
				Prober:            &library.MediaProber{FFprobeBinary: cfg.Tools.FFprobe},
				ArtBasenames:      cfg.Art.Basenames,
				ExcludeExtensions: cfg.Filters.ExcludeExtensions,
				Workers:           cfg.Sync.ScanWorkers,
				Logger:            logger,
			})
			entries, err := scanner.Scan(cmd.Context(), source)
			if err != nil {
				return fmt.Errorf("scan %s: %w", source, err)
			}

			differ := plan.NewDiffer(plan.Options{
				Target:     encoding,
				Strategy:   strategy,
				Records:    store,
				TargetRoot: target,
				Force:      force,
				Logger:     logger,
			})
			p, err := differ.Build(cmd.Context(), entries)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Plan for %s -> %s (%s, art %s)\n", source, target, encoding.Describe(), strategy)

			var rows [][]string
			for _, d := range p.Decisions {
				if !showAll && (d.Action == plan.ActionSkip || d.Action == plan.ActionFilter) {
					continue
				}
				detail := d.Reason
				if d.Err != nil {
					detail = fmt.Sprintf("%s: %v", d.Reason, d.Err)
				}
				rows = append(rows, []string{d.Action.String(), d.Entry.RelPath, detail})
			}
			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Action", "Path", "Reason"},
					rows,
				))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Action", "Files"},
				planSummaryRows(p),
				1,
			))
			warnMissingArt(cmd, p.WithoutArt)

			logger.Info("plan built",
				logging.Int("entries", len(entries)),
				logging.Int("work_items", len(p.Work())))
			return nil
		},
	}

	registerOutputFlags(cmd, &flags)
	cmd.Flags().BoolVar(&force, "force", false, "Plan as if every file needed re-syncing")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include skipped and filtered files in the listing")

	return cmd
}
