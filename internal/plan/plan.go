package plan

import (
	"fmt"

	"pocketsync/internal/art"
	"pocketsync/internal/library"
)

// Action is what the executor should do for one source file.
type Action int

const (
	// ActionSkip leaves the target alone; the file is already in sync.
	ActionSkip Action = iota
	// ActionCopy mirrors the source file verbatim.
	ActionCopy
	// ActionTranscode re-encodes the source into the requested format.
	ActionTranscode
	// ActionCopyArt mirrors a dedicated album art file.
	ActionCopyArt
	// ActionFilter drops the file from the target entirely.
	ActionFilter
	// ActionFail marks a file that cannot be synced this run.
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCopy:
		return "copy"
	case ActionTranscode:
		return "transcode"
	case ActionCopyArt:
		return "copy-art"
	case ActionFilter:
		return "filter"
	case ActionFail:
		return "fail"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Reasons attached to decisions. A reason explains why the action was chosen,
// not what the action does.
const (
	ReasonNew           = "new"
	ReasonChanged       = "changed"
	ReasonUnchanged     = "unchanged"
	ReasonMissingTarget = "missing-target"
	ReasonForced        = "forced"
	ReasonFiltered      = "filtered"
	ReasonUnsupported   = "unsupported-format"
	ReasonUnreadable    = "unreadable"
	ReasonCollision     = "target-collision"
)

// Decision is the planned handling of one source file.
type Decision struct {
	Entry  library.Entry
	Action Action
	Reason string

	// TargetRel is the slash-separated target path the action produces or
	// verifies. Empty for filtered and failed decisions.
	TargetRel string

	// Format is the descriptor persisted in the record on success: the
	// target encoding description for transcodes, "copy" otherwise.
	Format string

	// Art is the resolved art outcome for the entry's album directory.
	// Meaningful only for audio decisions.
	Art art.Outcome

	// Remux requests an ffmpeg stream-copy pass instead of a byte copy, so
	// art can be embedded or stripped without re-encoding.
	Remux bool

	// Err carries the failure for ActionFail decisions.
	Err error
}

// Plan is the complete set of decisions for one run.
type Plan struct {
	Decisions []Decision

	// WithoutArt lists audio files that ended up with no art at all under
	// the chosen strategy, for the end-of-run warning.
	WithoutArt []string
}

// Count returns how many decisions carry the given action.
func (p *Plan) Count(action Action) int {
	n := 0
	for _, d := range p.Decisions {
		if d.Action == action {
			n++
		}
	}
	return n
}

// Work returns the decisions that require touching the target.
func (p *Plan) Work() []Decision {
	var out []Decision
	for _, d := range p.Decisions {
		switch d.Action {
		case ActionCopy, ActionTranscode, ActionCopyArt:
			out = append(out, d)
		}
	}
	return out
}
