package plan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pocketsync/internal/art"
	"pocketsync/internal/fileutil"
	"pocketsync/internal/format"
	"pocketsync/internal/library"
	"pocketsync/internal/logging"
	"pocketsync/internal/records"
)

// Options configures a Differ.
type Options struct {
	// Target is the requested output encoding.
	Target format.Encoding
	// Strategy is the album-art policy for the run.
	Strategy art.Strategy
	// Records is the loaded record store for the target root.
	Records *records.Store
	// TargetRoot is the absolute target library root.
	TargetRoot string
	// Force re-syncs every file regardless of records.
	Force  bool
	Logger *slog.Logger
}

// Differ builds a Plan from scanned entries.
type Differ struct {
	target     format.Encoding
	strategy   art.Strategy
	records    *records.Store
	targetRoot string
	force      bool
	logger     *slog.Logger
}

// NewDiffer constructs a Differ from options.
func NewDiffer(opts Options) *Differ {
	return &Differ{
		target:     opts.Target,
		strategy:   opts.Strategy,
		records:    opts.Records,
		targetRoot: opts.TargetRoot,
		force:      opts.Force,
		logger:     logging.NewComponentLogger(opts.Logger, "plan"),
	}
}

// formatCopy is the record descriptor for files mirrored verbatim.
const formatCopy = "copy"

// Build produces one decision per entry. It reads the target filesystem but
// never writes; building the same plan twice over unchanged trees yields the
// same decisions.
func (d *Differ) Build(ctx context.Context, entries []library.Entry) (*Plan, error) {
	outcomes := d.resolveArt(entries)

	// Art files chosen for copying, keyed by absolute path.
	copyArt := make(map[string]struct{})
	for _, outcome := range outcomes {
		if outcome.CopyExternal {
			copyArt[outcome.ExternalArt] = struct{}{}
		}
	}

	p := &Plan{Decisions: make([]Decision, 0, len(entries))}
	claimed := make(map[string]string)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var decision Decision
		switch {
		case entry.Err != nil:
			decision = Decision{Entry: entry, Action: ActionFail, Reason: ReasonUnreadable, Err: entry.Err}
		case entry.Kind == library.KindAudio:
			decision = d.decideAudio(entry, outcomes[entry.AlbumDir()], p)
		case entry.Kind == library.KindArt:
			if _, chosen := copyArt[entry.AbsPath]; chosen {
				decision = d.decideArtCopy(entry)
			} else {
				decision = Decision{Entry: entry, Action: ActionFilter, Reason: ReasonFiltered}
			}
		default:
			decision = Decision{Entry: entry, Action: ActionFilter, Reason: ReasonFiltered}
		}

		// Two sources claiming one target path would race during
		// execution; the later claimant fails instead.
		if decision.TargetRel != "" {
			if prior, taken := claimed[decision.TargetRel]; taken {
				d.logger.Warn("target path collision",
					logging.String(logging.FieldPath, entry.RelPath),
					logging.String("target", decision.TargetRel),
					logging.String("claimed_by", prior))
				decision = Decision{
					Entry:  entry,
					Action: ActionFail,
					Reason: ReasonCollision,
					Err:    &CollisionError{Target: decision.TargetRel, ClaimedBy: prior},
				}
			} else {
				claimed[decision.TargetRel] = entry.RelPath
			}
		}

		p.Decisions = append(p.Decisions, decision)
	}

	return p, nil
}

// resolveArt computes one art outcome per album directory holding audio.
func (d *Differ) resolveArt(entries []library.Entry) map[string]art.Outcome {
	outcomes := make(map[string]art.Outcome)
	for _, entry := range entries {
		if entry.Kind != library.KindAudio {
			continue
		}
		dir := entry.AlbumDir()
		if _, done := outcomes[dir]; done {
			continue
		}
		outcomes[dir] = art.Resolve(d.strategy, entry.ExternalArt)
	}
	return outcomes
}

func (d *Differ) decideAudio(entry library.Entry, outcome art.Outcome, p *Plan) Decision {
	verdict, err := format.Decide(entry.Codec, entry.BitrateKbps, d.target)
	if err != nil {
		return Decision{Entry: entry, Action: ActionFail, Reason: ReasonUnsupported, Err: err}
	}

	if d.strategy != art.StrategyNone && outcome.ExternalArt == "" && !entry.HasEmbeddedArt {
		p.WithoutArt = append(p.WithoutArt, entry.RelPath)
	}

	decision := Decision{Entry: entry, Art: outcome}
	switch verdict {
	case format.VerdictTranscode:
		decision.Action = ActionTranscode
		decision.TargetRel = swapExtension(entry.RelPath, d.target.Extension())
		decision.Format = d.target.Describe()
	default:
		decision.Action = ActionCopy
		decision.TargetRel = entry.RelPath
		decision.Format = formatCopy
		// A plain byte copy cannot change embedded art; route through a
		// stream-copy remux when the outcome demands it.
		switch outcome.Embed {
		case art.EmbedFromFile:
			decision.Remux = true
		case art.EmbedNone:
			decision.Remux = entry.HasEmbeddedArt
		}
	}

	decision.Reason = d.auditAudio(entry, decision)
	if decision.Reason == ReasonUnchanged {
		decision.Action = ActionSkip
	}
	return decision
}

// auditAudio decides whether the planned action needs to run, returning the
// reason it does or ReasonUnchanged when it does not.
func (d *Differ) auditAudio(entry library.Entry, decision Decision) string {
	if d.force {
		return ReasonForced
	}

	record, ok := d.records.Lookup(entry.RelPath)
	if !ok {
		return ReasonNew
	}
	if record.Format != decision.Format || record.Art != decision.Art.Describe() || record.TargetPath != decision.TargetRel {
		return ReasonChanged
	}
	if !d.targetExists(decision.TargetRel) {
		return ReasonMissingTarget
	}
	if record.Source.CheapMatch(entry.SizeBytes, entry.ModTime) {
		return ReasonUnchanged
	}

	// Size or mtime moved; only a content hash can tell a touched file
	// from a changed one.
	sum, err := fileutil.HashFile(entry.AbsPath)
	if err != nil {
		d.logger.Warn("hash fallback failed",
			logging.String(logging.FieldPath, entry.RelPath),
			logging.Error(err))
		return ReasonChanged
	}
	if record.Source.SHA256 != "" && sum == record.Source.SHA256 {
		return ReasonUnchanged
	}
	return ReasonChanged
}

func (d *Differ) decideArtCopy(entry library.Entry) Decision {
	decision := Decision{
		Entry:     entry,
		Action:    ActionCopyArt,
		Reason:    ReasonNew,
		TargetRel: entry.RelPath,
	}
	if d.force {
		decision.Reason = ReasonForced
		return decision
	}
	info, err := os.Stat(filepath.Join(d.targetRoot, filepath.FromSlash(entry.RelPath)))
	switch {
	case err != nil:
		decision.Reason = ReasonNew
	case info.Size() == entry.SizeBytes:
		decision.Action = ActionSkip
		decision.Reason = ReasonUnchanged
	default:
		decision.Reason = ReasonChanged
	}
	return decision
}

func (d *Differ) targetExists(targetRel string) bool {
	info, err := os.Stat(filepath.Join(d.targetRoot, filepath.FromSlash(targetRel)))
	return err == nil && info.Mode().IsRegular()
}

func swapExtension(relPath, ext string) string {
	old := filepath.Ext(relPath)
	return strings.TrimSuffix(relPath, old) + "." + ext
}

// CollisionError reports two source files mapping onto one target path.
type CollisionError struct {
	Target    string
	ClaimedBy string
}

func (e *CollisionError) Error() string {
	return "target path " + e.Target + " already produced from " + e.ClaimedBy
}
