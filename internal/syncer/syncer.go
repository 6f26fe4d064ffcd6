package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"pocketsync/internal/art"
	"pocketsync/internal/ffmpeg"
	"pocketsync/internal/fileutil"
	"pocketsync/internal/format"
	"pocketsync/internal/logging"
	"pocketsync/internal/plan"
	"pocketsync/internal/records"
)

// ErrPartialWrite indicates a write was interrupted and its staging file
// could not be cleaned up; the leftover must be removed before the target
// path can be trusted.
var ErrPartialWrite = errors.New("partial write detected")

// Progress is delivered after each work item completes.
type Progress struct {
	Done  int
	Total int
	Path  string
}

// Options configures one sync run.
type Options struct {
	Plan       *plan.Plan
	TargetRoot string
	Records    *records.Store
	FFmpeg     ffmpeg.Client
	// Encoding is the target encoding for transcode items.
	Encoding format.Encoding
	// Workers bounds concurrent work items. 0 means one per CPU.
	Workers int
	// DryRun reports what would happen without writing anything.
	DryRun bool
	// VerifyCopies re-hashes byte copies after writing.
	VerifyCopies bool
	Logger       *slog.Logger
	OnProgress   func(Progress)
}

// Failure is one item that could not be synced.
type Failure struct {
	Path   string
	Reason string
	Err    error
}

// Report summarizes a completed run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	Copied     int
	Transcoded int
	ArtCopied  int
	Skipped    int
	Filtered   int

	// SourceBytes and TargetBytes cover the audio files processed this
	// run, for the size-reduction summary.
	SourceBytes int64
	TargetBytes int64

	Failures []Failure
}

// Failed returns the number of failed items.
func (r *Report) Failed() int { return len(r.Failures) }

// Duration returns the wall-clock run time.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Syncer executes plans.
type Syncer struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	report *Report
	done   int
	total  int
}

// New constructs a Syncer.
func New(opts Options) *Syncer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Syncer{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "sync"),
	}
}

// Run executes the plan and returns the report. The returned error covers
// run-level problems only (cancellation, record flush); per-item failures
// live in the report.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	p := s.opts.Plan
	s.report = &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    s.opts.DryRun,
		Skipped:   p.Count(plan.ActionSkip),
		Filtered:  p.Count(plan.ActionFilter),
	}

	// Failures the planner already decided carry straight into the report.
	for _, d := range p.Decisions {
		if d.Action == plan.ActionFail {
			s.report.Failures = append(s.report.Failures, Failure{Path: d.Entry.RelPath, Reason: d.Reason, Err: d.Err})
		}
	}

	work := p.Work()
	s.total = len(work)

	s.logger.Info("sync run starting",
		logging.String(logging.FieldRunID, s.report.RunID),
		logging.Int("work_items", s.total),
		logging.Int("workers", s.opts.Workers),
		logging.Bool("dry_run", s.opts.DryRun))

	jobs := make(chan plan.Decision)
	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				s.execute(ctx, d)
			}
		}()
	}

	var cancelled error
feed:
	for _, d := range work {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- d:
		}
	}
	close(jobs)
	wg.Wait()

	if !s.opts.DryRun {
		if err := s.opts.Records.Flush(); err != nil {
			s.report.FinishedAt = time.Now()
			return s.report, fmt.Errorf("flush sync records: %w", err)
		}
	}

	s.report.FinishedAt = time.Now()
	s.logger.Info("sync run finished",
		logging.String(logging.FieldRunID, s.report.RunID),
		logging.Int("copied", s.report.Copied),
		logging.Int("transcoded", s.report.Transcoded),
		logging.Int("skipped", s.report.Skipped),
		logging.Int("failed", s.report.Failed()),
		logging.Duration("elapsed", s.report.Duration()))

	return s.report, cancelled
}

func (s *Syncer) execute(ctx context.Context, d plan.Decision) {
	dst := filepath.Join(s.opts.TargetRoot, filepath.FromSlash(d.TargetRel))

	var err error
	if !s.opts.DryRun {
		switch d.Action {
		case plan.ActionCopy:
			if d.Remux {
				err = s.runFFmpeg(ctx, d, dst, false)
			} else {
				err = fileutil.CopyFileAtomic(d.Entry.AbsPath, dst, s.opts.VerifyCopies)
			}
		case plan.ActionTranscode:
			err = s.runFFmpeg(ctx, d, dst, true)
		case plan.ActionCopyArt:
			err = fileutil.CopyFileAtomic(d.Entry.AbsPath, dst, s.opts.VerifyCopies)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Warn("sync item failed",
			logging.String(logging.FieldPath, d.Entry.RelPath),
			logging.String(logging.FieldAction, d.Action.String()),
			logging.Error(err))
		s.report.Failures = append(s.report.Failures, Failure{Path: d.Entry.RelPath, Reason: d.Reason, Err: err})
	} else {
		switch d.Action {
		case plan.ActionCopy:
			s.report.Copied++
		case plan.ActionTranscode:
			s.report.Transcoded++
		case plan.ActionCopyArt:
			s.report.ArtCopied++
		}
		if d.Action == plan.ActionCopy || d.Action == plan.ActionTranscode {
			s.report.SourceBytes += d.Entry.SizeBytes
			if !s.opts.DryRun {
				if info, statErr := os.Stat(dst); statErr == nil {
					s.report.TargetBytes += info.Size()
				}
				s.stageRecord(d)
			}
		}
	}

	s.done++
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(Progress{Done: s.done, Total: s.total, Path: d.Entry.RelPath})
	}
}

// runFFmpeg transcodes or remuxes into a staging file and renames it into
// place only on success.
func (s *Syncer) runFFmpeg(ctx context.Context, d plan.Decision, dst string, transcode bool) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	staging := fileutil.StagingPath(dst)
	job := ffmpeg.Job{
		Input:  d.Entry.AbsPath,
		Output: staging,
		Embed:  d.Art.Embed,
	}
	if job.Embed == art.EmbedFromFile {
		job.ArtFile = d.Art.ExternalArt
	}
	if transcode {
		job.Encoding = s.opts.Encoding
	}

	if err := s.opts.FFmpeg.Run(ctx, job); err != nil {
		return discardStaging(staging, err)
	}
	info, err := os.Stat(staging)
	if err != nil || info.Size() == 0 {
		return discardStaging(staging, fmt.Errorf("ffmpeg produced no output for %s", d.Entry.RelPath))
	}
	if err := os.Rename(staging, dst); err != nil {
		return discardStaging(staging, fmt.Errorf("finalize %s: %w", dst, err))
	}
	return nil
}

// discardStaging removes a staging file after a failure. A leftover that
// cannot be removed is escalated so the operator cleans it up before the
// next run.
func discardStaging(staging string, cause error) error {
	if err := os.Remove(staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s left behind after: %w", ErrPartialWrite, staging, cause)
	}
	return cause
}

func (s *Syncer) stageRecord(d plan.Decision) {
	fp := records.Fingerprint{SizeBytes: d.Entry.SizeBytes, ModTime: d.Entry.ModTime}
	if sum, err := fileutil.HashFile(d.Entry.AbsPath); err == nil {
		fp.SHA256 = sum
	} else {
		s.logger.Warn("source hash failed; record keeps cheap signals only",
			logging.String(logging.FieldPath, d.Entry.RelPath),
			logging.Error(err))
	}
	s.opts.Records.StageUpdate(records.Record{
		Path:       d.Entry.RelPath,
		Source:     fp,
		TargetPath: d.TargetRel,
		Format:     d.Format,
		Art:        d.Art.Describe(),
		SyncedAt:   time.Now().UTC(),
	})
}
