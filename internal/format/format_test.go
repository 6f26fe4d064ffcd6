package format

import (
	"errors"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cases := []struct {
		name     string
		wantDesc string
		wantExt  string
	}{
		{"mp3-cbr", "mp3-cbr 180k", "mp3"},
		{"mp3-vbr", "mp3-vbr q3", "mp3"},
		{"opus", "opus 180k c3", "opus"},
		{"vorbis", "vorbis q10.0", "ogg"},
		{"flac", "flac l10", "flac"},
	}
	for _, tc := range cases {
		enc, err := Parse(tc.name, Params{})
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.name, err)
		}
		if enc.Describe() != tc.wantDesc {
			t.Errorf("Parse(%q).Describe() = %q, want %q", tc.name, enc.Describe(), tc.wantDesc)
		}
		if enc.Extension() != tc.wantExt {
			t.Errorf("Parse(%q).Extension() = %q, want %q", tc.name, enc.Extension(), tc.wantExt)
		}
	}
}

func TestParseOverrides(t *testing.T) {
	enc, err := Parse("mp3-vbr", Params{Quality: 6, QualitySet: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if enc.EquivalentKbps() != 115 {
		t.Fatalf("mp3-vbr q6 equivalent = %d, want 115", enc.EquivalentKbps())
	}

	enc, err = Parse("opus", Params{BitrateKbps: 96, Complexity: 8})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if enc.EquivalentKbps() != 96 {
		t.Fatalf("opus equivalent = %d, want 96", enc.EquivalentKbps())
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"wma", Params{}},
		{"", Params{}},
		{"mp3-vbr", Params{Quality: 12, QualitySet: true}},
		{"mp3-cbr", Params{BitrateKbps: 4000}},
		{"vorbis", Params{Quality: -3, QualitySet: true}},
		{"flac", Params{Quality: 13, QualitySet: true}},
	}
	for _, tc := range cases {
		if _, err := Parse(tc.name, tc.params); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Parse(%q, %+v) err = %v, want ErrUnsupported", tc.name, tc.params, err)
		}
	}
}

func TestVorbisEquivalentKbps(t *testing.T) {
	cases := []struct {
		quality float64
		want    int
	}{
		{-1, 48},
		{0, 64},
		{3, 112},
		{4, 128},
		{7, 224},
		{8, 256},
		{10, 384},
	}
	for _, tc := range cases {
		enc := Vorbis{Quality: tc.quality}
		if got := enc.EquivalentKbps(); got != tc.want {
			t.Errorf("Vorbis{%v}.EquivalentKbps() = %d, want %d", tc.quality, got, tc.want)
		}
	}
}

func TestMp3VBRLadderIsMonotonic(t *testing.T) {
	prev := 0
	for q := 9; q >= 0; q-- {
		got := Mp3VBR{Quality: q}.EquivalentKbps()
		if got <= prev {
			t.Fatalf("ladder not strictly decreasing with quality: q%d -> %d, q%d -> %d", q+1, prev, q, got)
		}
		prev = got
	}
}

func TestDecideCopiesAtOrBelowTarget(t *testing.T) {
	target := Mp3VBR{Quality: 3} // 175 kbps equivalent
	for _, kbps := range []int{64, 128, 174, 175} {
		verdict, err := Decide("mp3", kbps, target)
		if err != nil {
			t.Fatalf("Decide(%d): %v", kbps, err)
		}
		if verdict != VerdictCopy {
			t.Errorf("Decide(%d) = %v, want copy", kbps, verdict)
		}
	}
}

func TestDecideTranscodesAboveTarget(t *testing.T) {
	target := Mp3VBR{Quality: 3}
	for _, kbps := range []int{176, 320, 1000} {
		verdict, err := Decide("flac", kbps, target)
		if err != nil {
			t.Fatalf("Decide(%d): %v", kbps, err)
		}
		if verdict != VerdictTranscode {
			t.Errorf("Decide(%d) = %v, want transcode", kbps, verdict)
		}
	}
}

func TestDecideUnsupported(t *testing.T) {
	if _, err := Decide("wma", 192, Mp3CBR{BitrateKbps: 128}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for wma source, got %v", err)
	}
	if _, err := Decide("mp3", 0, Mp3CBR{BitrateKbps: 128}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for unknown bitrate, got %v", err)
	}
}

// Any source at or below the requested quality must be copied, never
// re-encoded, across the whole parameter space.
func TestQualityMonotonicity(t *testing.T) {
	targets := []Encoding{
		Mp3CBR{BitrateKbps: 128},
		Mp3VBR{Quality: 0},
		Mp3VBR{Quality: 9},
		Opus{BitrateKbps: 180, Complexity: 3},
		Vorbis{Quality: 5},
		Flac{Level: 8},
	}
	for _, target := range targets {
		for kbps := 8; kbps <= target.EquivalentKbps(); kbps += 8 {
			verdict, err := Decide("mp3", kbps, target)
			if err != nil {
				t.Fatalf("Decide(%d, %s): %v", kbps, target.Name(), err)
			}
			if verdict != VerdictCopy {
				t.Fatalf("source %dk against %s: got %v, want copy", kbps, target.Describe(), verdict)
			}
		}
	}
}
