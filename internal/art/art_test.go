package art

import "testing"

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"none", "embed-all", "prefer-file", "file-only", " Embed-All "} {
		if _, err := ParseStrategy(name); err != nil {
			t.Errorf("ParseStrategy(%q): %v", name, err)
		}
	}
	if _, err := ParseStrategy("sometimes"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestResolve(t *testing.T) {
	const cover = "/lib/Artist/Album/cover.jpg"

	cases := []struct {
		name        string
		strategy    Strategy
		externalArt string
		want        Outcome
	}{
		{
			name:     "none strips everything",
			strategy: StrategyNone, externalArt: cover,
			want: Outcome{Strategy: StrategyNone, Embed: EmbedNone},
		},
		{
			name:     "embed-all prefers the file",
			strategy: StrategyEmbedAll, externalArt: cover,
			want: Outcome{Strategy: StrategyEmbedAll, Embed: EmbedFromFile, ExternalArt: cover},
		},
		{
			name:     "embed-all keeps existing art without a file",
			strategy: StrategyEmbedAll,
			want:     Outcome{Strategy: StrategyEmbedAll, Embed: EmbedExisting},
		},
		{
			name:     "prefer-file copies and embeds the file",
			strategy: StrategyPreferFile, externalArt: cover,
			want: Outcome{Strategy: StrategyPreferFile, Embed: EmbedFromFile, ExternalArt: cover, CopyExternal: true},
		},
		{
			name:     "prefer-file falls back to embedded",
			strategy: StrategyPreferFile,
			want:     Outcome{Strategy: StrategyPreferFile, Embed: EmbedExisting},
		},
		{
			name:     "file-only strips embeds but keeps the file",
			strategy: StrategyFileOnly, externalArt: cover,
			want: Outcome{Strategy: StrategyFileOnly, Embed: EmbedNone, ExternalArt: cover, CopyExternal: true},
		},
		{
			name:     "file-only with nothing",
			strategy: StrategyFileOnly,
			want:     Outcome{Strategy: StrategyFileOnly, Embed: EmbedNone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.strategy, tc.externalArt)
			if got != tc.want {
				t.Fatalf("Resolve(%s, %q) = %+v, want %+v", tc.strategy, tc.externalArt, got, tc.want)
			}
		})
	}
}

// The resolver must be a pure function of its inputs so every track in an
// album observes the same outcome.
func TestResolveIsDeterministic(t *testing.T) {
	first := Resolve(StrategyPreferFile, "/lib/a/cover.png")
	for i := 0; i < 10; i++ {
		if got := Resolve(StrategyPreferFile, "/lib/a/cover.png"); got != first {
			t.Fatalf("outcome drifted on iteration %d: %+v vs %+v", i, got, first)
		}
	}
}
