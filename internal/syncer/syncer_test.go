package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"pocketsync/internal/art"
	"pocketsync/internal/ffmpeg"
	"pocketsync/internal/format"
	"pocketsync/internal/library"
	"pocketsync/internal/plan"
	"pocketsync/internal/records"
)

type fakeFFmpeg struct {
	mu      sync.Mutex
	jobs    []ffmpeg.Job
	failOn  string
	partial bool
	hook    func()
}

func (f *fakeFFmpeg) Run(ctx context.Context, job ffmpeg.Job) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	if f.failOn != "" && strings.Contains(job.Input, f.failOn) {
		if f.partial {
			os.WriteFile(job.Output, []byte("trunc"), 0o644)
		}
		return errors.New("encoder exploded")
	}
	return os.WriteFile(job.Output, []byte("encoded-audio"), 0o644)
}

func sourceEntry(t *testing.T, root, rel, content string) library.Entry {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	return library.Entry{
		RelPath:   rel,
		AbsPath:   abs,
		Kind:      library.ClassifyPath(rel),
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}
}

func newStore(t *testing.T, target string) *records.Store {
	t.Helper()
	store, err := records.Load(target, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func testPlan(t *testing.T, source string) *plan.Plan {
	t.Helper()
	flac := sourceEntry(t, source, "Album/01.flac", "flac-data-flac-data")
	mp3 := sourceEntry(t, source, "Album/02.mp3", "mp3-data")
	cover := sourceEntry(t, source, "Album/cover.jpg", "jpeg")
	outcome := art.Outcome{Strategy: art.StrategyPreferFile, Embed: art.EmbedFromFile, ExternalArt: cover.AbsPath, CopyExternal: true}
	return &plan.Plan{Decisions: []plan.Decision{
		{Entry: flac, Action: plan.ActionTranscode, Reason: plan.ReasonNew, TargetRel: "Album/01.mp3", Format: "mp3-vbr q3", Art: outcome},
		{Entry: mp3, Action: plan.ActionCopy, Reason: plan.ReasonNew, TargetRel: "Album/02.mp3", Format: "copy", Art: outcome, Remux: true},
		{Entry: cover, Action: plan.ActionCopyArt, Reason: plan.ReasonNew, TargetRel: "Album/cover.jpg"},
	}}
}

func TestNewDefaultsWorkersToCPUs(t *testing.T) {
	s := New(Options{})
	if s.opts.Workers != runtime.NumCPU() {
		t.Fatalf("workers = %d, want %d", s.opts.Workers, runtime.NumCPU())
	}
}

func TestRunExecutesPlanAndFlushesRecords(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	store := newStore(t, target)
	enc, err := format.Parse("mp3-vbr", format.Params{})
	if err != nil {
		t.Fatal(err)
	}

	client := &fakeFFmpeg{}
	var progress []Progress
	s := New(Options{
		Plan:       testPlan(t, source),
		TargetRoot: target,
		Records:    store,
		FFmpeg:     client,
		Encoding:   enc,
		Workers:    2,
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Transcoded != 1 || report.Copied != 1 || report.ArtCopied != 1 || report.Failed() != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.RunID == "" {
		t.Fatal("missing run id")
	}
	for _, rel := range []string{"Album/01.mp3", "Album/02.mp3", "Album/cover.jpg"} {
		if _, err := os.Stat(filepath.Join(target, filepath.FromSlash(rel))); err != nil {
			t.Errorf("target %s missing: %v", rel, err)
		}
	}
	if !records.Exists(target) {
		t.Fatal("record file not flushed")
	}
	reloaded, err := records.Load(target, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("record count = %d, want 2 audio records", reloaded.Len())
	}
	rec, ok := reloaded.Lookup("Album/01.flac")
	if !ok || rec.TargetPath != "Album/01.mp3" || rec.Format != "mp3-vbr q3" || rec.Source.SHA256 == "" {
		t.Fatalf("transcode record = %+v", rec)
	}
	if len(progress) != 3 || progress[len(progress)-1].Done != 3 {
		t.Fatalf("progress = %+v", progress)
	}

	// The remuxed copy and the transcode both went through ffmpeg with the
	// album's art file attached.
	if len(client.jobs) != 2 {
		t.Fatalf("ffmpeg jobs = %d", len(client.jobs))
	}
	for _, job := range client.jobs {
		if job.Embed != art.EmbedFromFile || job.ArtFile == "" {
			t.Fatalf("job missing art embed: %+v", job)
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	store := newStore(t, target)
	enc, err := format.Parse("mp3-vbr", format.Params{})
	if err != nil {
		t.Fatal(err)
	}

	s := New(Options{
		Plan:       testPlan(t, source),
		TargetRoot: target,
		Records:    store,
		FFmpeg:     &fakeFFmpeg{failOn: "01.flac", partial: true},
		Encoding:   enc,
		Workers:    2,
	})
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Failed() != 1 || report.Copied != 1 || report.ArtCopied != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Failures[0].Path != "Album/01.flac" {
		t.Fatalf("failure = %+v", report.Failures[0])
	}

	// The failed transcode staged no record and left no staging file.
	reloaded, err := records.Load(target, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Lookup("Album/01.flac"); ok {
		t.Fatal("failed item has a record")
	}
	if _, ok := reloaded.Lookup("Album/02.mp3"); !ok {
		t.Fatal("successful copy missing its record")
	}
	matches, err := filepath.Glob(filepath.Join(target, "Album", ".pocketsync-tmp-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("staging leftovers: %v", matches)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	store := newStore(t, target)
	enc, err := format.Parse("mp3-vbr", format.Params{})
	if err != nil {
		t.Fatal(err)
	}

	client := &fakeFFmpeg{}
	s := New(Options{
		Plan:       testPlan(t, source),
		TargetRoot: target,
		Records:    store,
		FFmpeg:     client,
		Encoding:   enc,
		Workers:    2,
		DryRun:     true,
	})
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Same counts as a real run over the same plan, no side effects.
	if report.Transcoded != 1 || report.Copied != 1 || report.ArtCopied != 1 {
		t.Fatalf("dry-run report = %+v", report)
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run wrote into target: %v", entries)
	}
	if len(client.jobs) != 0 {
		t.Fatal("dry run invoked ffmpeg")
	}
	if records.Exists(target) {
		t.Fatal("dry run flushed records")
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	store := newStore(t, target)
	enc, err := format.Parse("mp3-vbr", format.Params{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{
		Plan:       testPlan(t, source),
		TargetRoot: target,
		Records:    store,
		FFmpeg:     &fakeFFmpeg{},
		Encoding:   enc,
		Workers:    1,
	})
	_, err = s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunAbortMidRunKeepsCompletedRecords(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	store := newStore(t, target)
	enc, err := format.Parse("mp3-vbr", format.Params{})
	if err != nil {
		t.Fatal(err)
	}

	// The first ffmpeg invocation aborts the run, as a SIGINT arriving while
	// the transcode is in flight would.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &fakeFFmpeg{hook: cancel}

	s := New(Options{
		Plan:       testPlan(t, source),
		TargetRoot: target,
		Records:    store,
		FFmpeg:     client,
		Encoding:   enc,
		Workers:    1,
	})
	report, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// The in-flight transcode ran to completion and its record survived the
	// abort via the partial flush.
	if report.Transcoded != 1 {
		t.Fatalf("report = %+v", report)
	}
	if _, err := os.Stat(filepath.Join(target, "Album", "01.mp3")); err != nil {
		t.Fatalf("completed transcode missing from target: %v", err)
	}
	if !records.Exists(target) {
		t.Fatal("abort skipped the record flush")
	}
	reloaded, err := records.Load(target, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Lookup("Album/01.flac"); !ok {
		t.Fatal("completed transcode has no record")
	}
}
