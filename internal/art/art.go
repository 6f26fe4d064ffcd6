// Package art resolves how album artwork travels from source to target.
//
// A strategy is resolved once per album directory into an Outcome, and that
// single Outcome is applied to every track in the directory during a run, so
// an album can never end up with mixed art handling.
package art

import (
	"fmt"
	"strings"
)

// Strategy selects the album-art policy for a whole run.
type Strategy string

const (
	// StrategyNone strips all embedded art and excludes art files.
	StrategyNone Strategy = "none"
	// StrategyEmbedAll embeds art into every synced file, preferring a
	// dedicated art file over pre-existing embedded art.
	StrategyEmbedAll Strategy = "embed-all"
	// StrategyPreferFile copies a dedicated art file alongside and uses it
	// for embedding; falls back to pre-existing embedded art.
	StrategyPreferFile Strategy = "prefer-file"
	// StrategyFileOnly discards embedded art and keeps only the dedicated
	// art file.
	StrategyFileOnly Strategy = "file-only"
)

// ParseStrategy validates a strategy name from configuration or flags.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyNone:
		return StrategyNone, nil
	case StrategyEmbedAll:
		return StrategyEmbedAll, nil
	case StrategyPreferFile:
		return StrategyPreferFile, nil
	case StrategyFileOnly:
		return StrategyFileOnly, nil
	default:
		return "", fmt.Errorf("unknown art strategy %q (want none, embed-all, prefer-file, or file-only)", name)
	}
}

// EmbedSource says where embedded art in the target file comes from.
type EmbedSource int

const (
	// EmbedNone strips any embedded art from the target.
	EmbedNone EmbedSource = iota
	// EmbedFromFile embeds the album's dedicated art file.
	EmbedFromFile
	// EmbedExisting carries over whatever art each track already embeds.
	EmbedExisting
)

func (s EmbedSource) String() string {
	switch s {
	case EmbedNone:
		return "none"
	case EmbedFromFile:
		return "file"
	case EmbedExisting:
		return "existing"
	default:
		return fmt.Sprintf("embed(%d)", int(s))
	}
}

// Outcome is the resolved art handling for one album directory.
type Outcome struct {
	Strategy Strategy
	// Embed says what ends up inside each track.
	Embed EmbedSource
	// ExternalArt is the absolute path of the chosen dedicated art file,
	// empty when the album has none.
	ExternalArt string
	// CopyExternal requests copying ExternalArt into the target album
	// directory.
	CopyExternal bool
}

// Describe returns the compact form stored in sync records.
func (o Outcome) Describe() string {
	return fmt.Sprintf("%s/%s", o.Strategy, o.Embed)
}

// Resolve computes the Outcome for one album directory. externalArt is the
// dedicated art file discovered for the directory ("" when absent). The
// result is deterministic: same inputs, same outcome.
func Resolve(strategy Strategy, externalArt string) Outcome {
	hasExternal := strings.TrimSpace(externalArt) != ""
	outcome := Outcome{Strategy: strategy, ExternalArt: externalArt}

	switch strategy {
	case StrategyNone:
		outcome.Embed = EmbedNone
		outcome.ExternalArt = ""
	case StrategyEmbedAll:
		// Embeds only; the art file itself is not mirrored alongside.
		if hasExternal {
			outcome.Embed = EmbedFromFile
		} else {
			outcome.Embed = EmbedExisting
		}
	case StrategyPreferFile:
		if hasExternal {
			outcome.Embed = EmbedFromFile
			outcome.CopyExternal = true
		} else {
			outcome.Embed = EmbedExisting
		}
	case StrategyFileOnly:
		outcome.Embed = EmbedNone
		outcome.CopyExternal = hasExternal
	}

	return outcome
}
