package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pocketsync/internal/ffmpeg"
	"pocketsync/internal/history"
	"pocketsync/internal/library"
	"pocketsync/internal/logging"
	"pocketsync/internal/plan"
	"pocketsync/internal/preflight"
	"pocketsync/internal/records"
	"pocketsync/internal/syncer"
)

// lockFileName guards a target root against concurrent sync runs.
const lockFileName = ".pocketsync.lock"

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var flags outputFlags
	var (
		jobs      int
		dryRun    bool
		force     bool
		noRecords bool
		assumeYes bool
		verify    bool
	)

	cmd := &cobra.Command{
		Use:   "sync SOURCE TARGET",
		Short: "Synchronize a music library into a reduced-quality mirror",
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

			results := preflight.Run(source, target, cfg.Tools.FFmpeg, cfg.Tools.FFprobe, 0)
			for _, result := range results {
				if result.Passed {
					continue
				}
				if result.Name == "Root orientation" && assumeYes {
					logger.Warn("continuing despite root orientation check", logging.String("detail", result.Detail))
					continue
				}
				return fmt.Errorf("%s: %s", result.Name, result.Detail)
			}

			lock := flock.New(filepath.Join(target, lockFileName))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire target lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("target %s is locked by another sync", target)
			}
			defer func() {
				_ = lock.Unlock()
				_ = os.Remove(lock.Path())
			}()

			writeRecords := cfg.Sync.WriteRecords && !noRecords
			store, err := records.Load(target, writeRecords, logger)
			if err != nil {
				if !errors.Is(err, records.ErrCorrupt) {
					return err
				}
				logger.Warn("sync records unusable; every file will be re-examined", logging.Error(err))
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
			warnMissingArt(cmd, p.WithoutArt)

			workers := cfg.Sync.Workers
			if jobs > 0 {
				workers = jobs
			}

			opts := syncer.Options{
				Plan:         p,
				TargetRoot:   target,
				Records:      store,
				FFmpeg:       ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Tools.FFmpeg)),
				Encoding:     encoding,
				Workers:      workers,
				DryRun:       dryRun,
				VerifyCopies: verify || cfg.Sync.VerifyCopies,
				Logger:       logger,
			}
			if total := len(p.Work()); total > 0 && stderrIsTerminal() {
				bar := progressbar.NewOptions(total,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("syncing"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				opts.OnProgress = func(progress syncer.Progress) {
					_ = bar.Add(1)
				}
				defer func() { _ = bar.Finish() }()
			}

			report, runErr := syncer.New(opts).Run(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), renderReport(report))

			if cfg.History.Enabled && !dryRun {
				if err := journalRun(cfg.HistoryDBPath(), source, target, encoding.Describe(), string(strategy), report); err != nil {
					logger.Warn("history journal update failed", logging.Error(err))
				}
			}

			if runErr != nil {
				return runErr
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d items failed to sync", failed)
			}
			return nil
		},
	}

	registerOutputFlags(cmd, &flags)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent work items (default from config)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report planned work without writing anything")
	cmd.Flags().BoolVar(&force, "force", false, "Re-sync every file regardless of records")
	cmd.Flags().BoolVar(&noRecords, "no-records", false, "Do not write sync records to the target")
	cmd.Flags().BoolVarP(&assumeYes, "assume-yes", "y", false, "Proceed past the swapped-roots guardrail")
	cmd.Flags().BoolVar(&verify, "verify", false, "Re-hash byte copies after writing")

	return cmd
}

func journalRun(dbPath, source, target, formatDesc, artStrategy string, report *syncer.Report) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.RecordRun(context.Background(), history.Run{
		RunID:       report.RunID,
		SourceRoot:  source,
		TargetRoot:  target,
		Format:      formatDesc,
		ArtStrategy: artStrategy,
		DryRun:      report.DryRun,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Copied:      report.Copied,
		Transcoded:  report.Transcoded,
		ArtCopied:   report.ArtCopied,
		Skipped:     report.Skipped,
		Filtered:    report.Filtered,
		Failed:      report.Failed(),
		SourceBytes: report.SourceBytes,
		TargetBytes: report.TargetBytes,
	})
	return err
}
