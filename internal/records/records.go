package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pocketsync/internal/logging"
)

// FileName is the record file kept in the target library root.
const FileName = ".pocketsync.json"

// schemaVersion guards against reading record files written by incompatible
// releases. A mismatch is treated like corruption: fall back to full
// fingerprinting rather than fail the run.
const schemaVersion = 1

// ErrCorrupt indicates the record file exists but cannot be used.
var ErrCorrupt = errors.New("corrupt sync records")

// Fingerprint captures a file's content state: cheap signals plus a full
// content hash for when the cheap signals disagree.
type Fingerprint struct {
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mtime"`
	SHA256    string    `json:"sha256"`
}

// CheapMatch reports whether size and modification time match, avoiding a
// content read. Modification times are compared at second granularity since
// some filesystems truncate them.
func (f Fingerprint) CheapMatch(size int64, modTime time.Time) bool {
	return f.SizeBytes == size && f.ModTime.Truncate(time.Second).Equal(modTime.Truncate(time.Second))
}

// Record is the persisted state of one successfully synchronized file.
type Record struct {
	// Path is the slash-separated library-relative path of the source file.
	Path string `json:"path"`
	// Source fingerprints the source file as of the last successful sync.
	Source Fingerprint `json:"source"`
	// TargetPath is the target-relative path the sync produced.
	TargetPath string `json:"target_path"`
	// Format describes the encoding applied, e.g. "mp3-vbr q3" or "copy".
	Format string `json:"format"`
	// Art describes the resolved art outcome applied to the album.
	Art string `json:"art"`
	// SyncedAt is when the target file was durably written.
	SyncedAt time.Time `json:"synced_at"`
}

type recordFile struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Records     []Record  `json:"records"`
}

// Store owns the record file for one target root.
type Store struct {
	path         string
	writeEnabled bool
	logger       *slog.Logger

	mu      sync.Mutex
	records map[string]Record
	staged  map[string]Record
}

// Load reads the record file inside targetRoot. A missing file yields an
// empty store. A file that exists but cannot be parsed, or that carries an
// incompatible version, yields an empty store together with an error wrapping
// ErrCorrupt; the caller warns and continues with full fingerprinting.
//
// When writeEnabled is false the store still honors any pre-existing records
// for matching, but Flush becomes a no-op; divergence between records and
// reality can then accumulate across runs.
func Load(targetRoot string, writeEnabled bool, logger *slog.Logger) (*Store, error) {
	store := &Store{
		path:         filepath.Join(targetRoot, FileName),
		writeEnabled: writeEnabled,
		logger:       logging.NewComponentLogger(logger, "records"),
		records:      make(map[string]Record),
		staged:       make(map[string]Record),
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return store, fmt.Errorf("%w: read %s: %w", ErrCorrupt, store.path, err)
	}

	var parsed recordFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return store, fmt.Errorf("%w: parse %s: %w", ErrCorrupt, store.path, err)
	}
	if parsed.Version != schemaVersion {
		return store, fmt.Errorf("%w: %s has version %d, expected %d", ErrCorrupt, store.path, parsed.Version, schemaVersion)
	}

	for _, record := range parsed.Records {
		if record.Path == "" {
			continue
		}
		store.records[record.Path] = record
	}

	store.logger.Debug("loaded sync records",
		logging.Int("record_count", len(store.records)),
		logging.String("path", store.path))

	return store, nil
}

// Path returns the on-disk location of the record file.
func (s *Store) Path() string { return s.path }

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Lookup returns the record for a library-relative path, if one exists.
// Staged but unflushed updates are not visible; planning only ever consults
// the state of the previous completed run.
func (s *Store) Lookup(relPath string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[relPath]
	return record, ok
}

// All returns the loaded records sorted by path.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// StageUpdate buffers a record update without touching persisted state. Safe
// to call from concurrent workers.
func (s *Store) StageUpdate(record Record) {
	if record.Path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[record.Path] = record
}

// StagedCount returns the number of buffered updates.
func (s *Store) StagedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

// Flush merges staged updates over the loaded records and atomically replaces
// the record file. Untouched records are carried over verbatim, so records
// whose source files have disappeared remain until delete propagation exists.
// A no-op when record writing is disabled or nothing was staged.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.writeEnabled {
		s.logger.Debug("record writing disabled; flush skipped",
			logging.Int("staged_count", len(s.staged)))
		return nil
	}
	if len(s.staged) == 0 {
		return nil
	}

	for path, record := range s.staged {
		s.records[path] = record
	}
	s.staged = make(map[string]Record)

	merged := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		merged = append(merged, record)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Path < merged[j].Path })

	payload := recordFile{
		Version:     schemaVersion,
		GeneratedAt: time.Now().UTC(),
		Records:     merged,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp record file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace record file: %w", err)
	}

	s.logger.Debug("flushed sync records",
		logging.Int("record_count", len(merged)),
		logging.String("path", s.path))

	return nil
}

// Exists reports whether a record file is present inside root. Used by the
// swapped-roots guardrail before any sync starts.
func Exists(root string) bool {
	info, err := os.Stat(filepath.Join(root, FileName))
	return err == nil && !info.IsDir()
}
