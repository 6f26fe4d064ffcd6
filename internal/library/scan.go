package library

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"pocketsync/internal/logging"
)

// Options configures a Scanner.
type Options struct {
	Prober Prober
	// ArtBasenames are the file stems recognized as dedicated album art,
	// in preference order.
	ArtBasenames []string
	// ExcludeExtensions drop matching files from the plan even when they
	// would otherwise classify as audio.
	ExcludeExtensions []string
	// Workers bounds the probing pool. 0 means twice the CPU count;
	// probing is I/O bound.
	Workers int
	Logger  *slog.Logger
}

// Scanner walks a library root and produces classified, probed entries.
type Scanner struct {
	prober   Prober
	artRank  map[string]int
	excluded map[string]struct{}
	workers  int
	logger   *slog.Logger
}

// NewScanner constructs a Scanner from options.
func NewScanner(opts Options) *Scanner {
	artRank := make(map[string]int, len(opts.ArtBasenames))
	for i, stem := range opts.ArtBasenames {
		artRank[strings.ToLower(stem)] = i
	}
	excluded := make(map[string]struct{}, len(opts.ExcludeExtensions))
	for _, ext := range opts.ExcludeExtensions {
		excluded[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Scanner{
		prober:   opts.Prober,
		artRank:  artRank,
		excluded: excluded,
		workers:  workers,
		logger:   logging.NewComponentLogger(opts.Logger, "scan"),
	}
}

// Scan walks root and returns one entry per regular file, in collated order.
// Audio entries are probed concurrently. An unreadable or unprobeable file
// becomes an entry with Err set; only a failure to walk the root itself is
// returned as an error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Entry, error) {
	root = filepath.Clean(root)

	var entries []Entry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			entries = append(entries, Entry{
				RelPath: filepath.ToSlash(rel),
				AbsPath: path,
				Kind:    KindUnknown,
				Err:     err,
			})
			s.logger.Warn("unreadable library entry", logging.String(logging.FieldPath, rel), logging.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if path != root && IsHidden(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		entry := Entry{
			RelPath: filepath.ToSlash(rel),
			AbsPath: path,
			Kind:    s.classify(path),
		}
		if info, err := d.Info(); err == nil {
			entry.SizeBytes = info.Size()
			entry.ModTime = info.ModTime()
		} else {
			entry.Err = err
		}
		entries = append(entries, entry)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	artByDir := s.indexArt(entries)
	for i := range entries {
		if entries[i].Kind != KindAudio {
			continue
		}
		entries[i].ExternalArt = lookupArt(artByDir, filepath.Dir(entries[i].AbsPath))
	}

	s.probeAll(ctx, entries)

	sortEntries(entries)
	return entries, nil
}

func (s *Scanner) classify(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, drop := s.excluded[ext]; drop {
		return KindCompanion
	}
	return ClassifyPath(path)
}

// indexArt picks, per directory, the art file with the best-ranked stem.
// Ties resolve lexically so repeated scans pick the same file.
func (s *Scanner) indexArt(entries []Entry) map[string]string {
	byDir := make(map[string]string)
	rank := func(path string) (int, bool) {
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		r, ok := s.artRank[stem]
		return r, ok
	}
	for _, entry := range entries {
		if entry.Kind != KindArt {
			continue
		}
		newRank, ok := rank(entry.AbsPath)
		if !ok {
			continue
		}
		dir := filepath.Dir(entry.AbsPath)
		current, exists := byDir[dir]
		if !exists {
			byDir[dir] = entry.AbsPath
			continue
		}
		currentRank, _ := rank(current)
		if newRank < currentRank || (newRank == currentRank && entry.AbsPath < current) {
			byDir[dir] = entry.AbsPath
		}
	}
	return byDir
}

func lookupArt(byDir map[string]string, dir string) string {
	if art, ok := byDir[dir]; ok {
		return art
	}
	// Multi-disc albums often keep one cover in the parent directory.
	if art, ok := byDir[filepath.Dir(dir)]; ok {
		return art
	}
	return ""
}

func (s *Scanner) probeAll(ctx context.Context, entries []Entry) {
	if s.prober == nil {
		return
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				entry := &entries[i]
				probe, err := s.prober.Probe(ctx, entry.AbsPath)
				if err != nil {
					entry.Err = err
					continue
				}
				entry.Codec = probe.Codec
				entry.BitrateKbps = probe.BitrateKbps
				entry.Title = probe.Title
				entry.HasEmbeddedArt = probe.HasEmbeddedArt
			}
		}()
	}

	for i := range entries {
		if entries[i].Kind != KindAudio || entries[i].Err != nil {
			continue
		}
		select {
		case <-ctx.Done():
			// Stop feeding; entries not probed keep zero metadata and are
			// surfaced as failures by the planner.
			for ; i < len(entries); i++ {
				if entries[i].Kind == KindAudio && entries[i].Err == nil {
					entries[i].Err = ctx.Err()
				}
			}
			close(indices)
			wg.Wait()
			return
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()
}

// sortEntries orders by path with numeric-aware collation so track numbers
// sort naturally (2 before 10).
func sortEntries(entries []Entry) {
	c := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(entries, func(i, j int) bool {
		return c.CompareString(entries[i].RelPath, entries[j].RelPath) < 0
	})
}

// IsHidden reports whether a relative path has any hidden component. The
// record file and staging files inside the target start with a dot and must
// never be treated as library content.
func IsHidden(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
