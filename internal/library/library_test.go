package library

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"pocketsync/internal/testsupport"
)

func TestClassifyPath(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"Album/01 - Intro.mp3", KindAudio},
		{"Album/02 - Song.FLAC", KindAudio},
		{"Album/cover.jpg", KindArt},
		{"Album/folder.PNG", KindArt},
		{"Album/album.cue", KindCompanion},
		{"Album/rip.log", KindCompanion},
		{"Album/best-of.m3u", KindPlaylist},
		{"Album/notes", KindUnknown},
		{"Album/photo.bmp", KindUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyPath(tc.path); got != tc.want {
			t.Errorf("ClassifyPath(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

type fakeProber struct {
	mu     sync.Mutex
	calls  []string
	probes map[string]Probe
	errs   map[string]error
}

func (p *fakeProber) Probe(ctx context.Context, absPath string) (Probe, error) {
	p.mu.Lock()
	p.calls = append(p.calls, filepath.Base(absPath))
	p.mu.Unlock()
	if err, ok := p.errs[filepath.Base(absPath)]; ok {
		return Probe{}, err
	}
	if probe, ok := p.probes[filepath.Base(absPath)]; ok {
		return probe, nil
	}
	return Probe{Codec: "mp3", BitrateKbps: 192}, nil
}

func writeLibraryFile(t *testing.T, root, rel string) string {
	t.Helper()
	return testsupport.WriteFile(t, root, rel, []byte("x"))
}

func TestScanClassifiesAndProbes(t *testing.T) {
	root := t.TempDir()
	writeLibraryFile(t, root, "Artist/Album/01 - One.mp3")
	writeLibraryFile(t, root, "Artist/Album/10 - Ten.mp3")
	writeLibraryFile(t, root, "Artist/Album/2 - Two.mp3")
	writeLibraryFile(t, root, "Artist/Album/cover.jpg")
	writeLibraryFile(t, root, "Artist/Album/album.cue")
	writeLibraryFile(t, root, "Artist/Album/.hidden.mp3")

	prober := &fakeProber{probes: map[string]Probe{
		"01 - One.mp3": {Codec: "flac", BitrateKbps: 900, Title: "One", HasEmbeddedArt: true},
	}}
	scanner := NewScanner(Options{
		Prober:       prober,
		ArtBasenames: []string{"cover", "folder"},
		Workers:      2,
	})

	entries, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries (hidden file skipped), got %d", len(entries))
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.RelPath)
	}
	wantOrder := []string{
		"Artist/Album/01 - One.mp3",
		"Artist/Album/2 - Two.mp3",
		"Artist/Album/10 - Ten.mp3",
		"Artist/Album/album.cue",
		"Artist/Album/cover.jpg",
	}
	for i, want := range wantOrder {
		if paths[i] != want {
			t.Fatalf("entry %d = %q, want %q (order %v)", i, paths[i], want, paths)
		}
	}

	first := entries[0]
	if first.Kind != KindAudio || first.Codec != "flac" || first.BitrateKbps != 900 || first.Title != "One" || !first.HasEmbeddedArt {
		t.Fatalf("probed entry not populated: %+v", first)
	}
	if first.ExternalArt != filepath.Join(root, "Artist", "Album", "cover.jpg") {
		t.Fatalf("external art = %q", first.ExternalArt)
	}
	if first.SizeBytes != 1 || first.ModTime.IsZero() {
		t.Fatalf("stat fields not populated: %+v", first)
	}
}

func TestScanArtPreferenceAndParentFallback(t *testing.T) {
	root := t.TempDir()
	writeLibraryFile(t, root, "Album/cover.jpg")
	writeLibraryFile(t, root, "Album/folder.jpg")
	writeLibraryFile(t, root, "Album/CD1/01.mp3")
	writeLibraryFile(t, root, "Album/02.mp3")

	scanner := NewScanner(Options{
		Prober:       &fakeProber{},
		ArtBasenames: []string{"cover", "folder"},
		Workers:      1,
	})
	entries, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := filepath.Join(root, "Album", "cover.jpg")
	for _, e := range entries {
		if e.Kind != KindAudio {
			continue
		}
		if e.ExternalArt != want {
			t.Errorf("%s: external art = %q, want %q", e.RelPath, e.ExternalArt, want)
		}
	}
}

func TestScanExcludedExtensionIsCompanion(t *testing.T) {
	root := t.TempDir()
	writeLibraryFile(t, root, "Album/01.wav")
	writeLibraryFile(t, root, "Album/02.mp3")

	prober := &fakeProber{}
	scanner := NewScanner(Options{
		Prober:            prober,
		ExcludeExtensions: []string{".wav"},
		Workers:           1,
	})
	entries, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, e := range entries {
		switch e.RelPath {
		case "Album/01.wav":
			if e.Kind != KindCompanion {
				t.Errorf("excluded wav classified as %s", e.Kind)
			}
		case "Album/02.mp3":
			if e.Kind != KindAudio {
				t.Errorf("mp3 classified as %s", e.Kind)
			}
		}
	}
	for _, call := range prober.calls {
		if call == "01.wav" {
			t.Fatal("excluded file was probed")
		}
	}
}

func TestScanProbeFailureBecomesEntryError(t *testing.T) {
	root := t.TempDir()
	writeLibraryFile(t, root, "Album/bad.mp3")
	writeLibraryFile(t, root, "Album/good.mp3")

	probeErr := errors.New("truncated header")
	scanner := NewScanner(Options{
		Prober:  &fakeProber{errs: map[string]error{"bad.mp3": probeErr}},
		Workers: 2,
	})
	entries, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, e := range entries {
		switch e.RelPath {
		case "Album/bad.mp3":
			if !errors.Is(e.Err, probeErr) {
				t.Errorf("bad.mp3 err = %v", e.Err)
			}
		case "Album/good.mp3":
			if e.Err != nil {
				t.Errorf("good.mp3 err = %v", e.Err)
			}
		}
	}
}

func TestIsHidden(t *testing.T) {
	cases := map[string]bool{
		"Album/01.mp3":            false,
		".pocketsync.json":        true,
		"Album/.pocketsync-tmp-x": true,
		".git/config":             true,
	}
	for rel, want := range cases {
		if got := IsHidden(rel); got != want {
			t.Errorf("IsHidden(%q) = %v, want %v", rel, got, want)
		}
	}
}
