package records

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pocketsync/internal/logging"
)

func fingerprint(size int64, hash string) Fingerprint {
	return Fingerprint{SizeBytes: size, ModTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), SHA256: hash}
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	store, err := Load(t.TempDir(), true, logging.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", store.Len())
	}
}

func TestStageFlushReload(t *testing.T) {
	root := t.TempDir()
	store, err := Load(root, true, logging.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	record := Record{
		Path:       "ArtistA/AlbumB/01.flac",
		Source:     fingerprint(1000, "abc"),
		TargetPath: "ArtistA/AlbumB/01.mp3",
		Format:     "mp3-vbr q3",
		Art:        "prefer-file/file",
		SyncedAt:   time.Now().UTC(),
	}
	store.StageUpdate(record)

	// Staged updates are invisible until flushed.
	if _, ok := store.Lookup(record.Path); ok {
		t.Fatal("staged record should not be visible to Lookup")
	}

	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded, err := Load(root, true, logging.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.Lookup(record.Path)
	if !ok {
		t.Fatal("record missing after reload")
	}
	if got.Format != record.Format || got.Source.SHA256 != "abc" {
		t.Fatalf("record round-trip mismatch: %+v", got)
	}
}

func TestFlushCarriesUntouchedRecords(t *testing.T) {
	root := t.TempDir()
	store, _ := Load(root, true, logging.NewNop())
	store.StageUpdate(Record{Path: "a/1.mp3", Source: fingerprint(1, "h1")})
	store.StageUpdate(Record{Path: "a/2.mp3", Source: fingerprint(2, "h2")})
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Second run touches only one path; the other must survive even though
	// its source file may no longer exist.
	second, _ := Load(root, true, logging.NewNop())
	second.StageUpdate(Record{Path: "a/1.mp3", Source: fingerprint(3, "h3")})
	if err := second.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	final, _ := Load(root, true, logging.NewNop())
	if final.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", final.Len())
	}
	got, _ := final.Lookup("a/1.mp3")
	if got.Source.SHA256 != "h3" {
		t.Fatalf("updated record not applied: %+v", got)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := Load(root, true, logging.NewNop())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
	if store == nil || store.Len() != 0 {
		t.Fatal("corrupt load must still return a usable empty store")
	}
}

func TestLoadIncompatibleVersion(t *testing.T) {
	root := t.TempDir()
	payload := `{"version": 99, "records": []}`
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root, true, logging.NewNop()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt for version mismatch", err)
	}
}

func TestDisabledStoreReadsButNeverWrites(t *testing.T) {
	root := t.TempDir()

	writer, _ := Load(root, true, logging.NewNop())
	writer.StageUpdate(Record{Path: "x/1.mp3", Source: fingerprint(1, "h")})
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		t.Fatal(err)
	}

	readOnly, err := Load(root, false, logging.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Pre-existing records are still honored for matching.
	if _, ok := readOnly.Lookup("x/1.mp3"); !ok {
		t.Fatal("read-only store should expose existing records")
	}
	readOnly.StageUpdate(Record{Path: "x/2.mp3", Source: fingerprint(2, "h2")})
	if err := readOnly.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	after, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("disabled store must not modify the record file")
	}
}

func TestFlushWithoutStagedChangesIsNoop(t *testing.T) {
	root := t.TempDir()
	store, _ := Load(root, true, logging.NewNop())
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no record file should be created when nothing was staged")
	}
}

func TestConcurrentStaging(t *testing.T) {
	root := t.TempDir()
	store, _ := Load(root, true, logging.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.StageUpdate(Record{
				Path:   filepath.Join("album", string(rune('a'+n%26))+".mp3"),
				Source: fingerprint(int64(n), "h"),
			})
		}(i)
	}
	wg.Wait()

	if store.StagedCount() != 26 {
		t.Fatalf("staged count = %d, want 26 distinct paths", store.StagedCount())
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestCheapMatchTruncatesToSeconds(t *testing.T) {
	base := time.Date(2026, 5, 1, 8, 30, 15, 0, time.UTC)
	fp := Fingerprint{SizeBytes: 10, ModTime: base}
	if !fp.CheapMatch(10, base.Add(500*time.Millisecond)) {
		t.Fatal("sub-second mtime differences should still match")
	}
	if fp.CheapMatch(11, base) {
		t.Fatal("size change must not match")
	}
	if fp.CheapMatch(10, base.Add(2*time.Second)) {
		t.Fatal("mtime change must not match")
	}
}
