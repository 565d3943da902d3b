package syncer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLocalStore marks failures of the local database. They end a pass.
var ErrLocalStore = errors.New("local store error")

// PullPolicy decides what happens when a pulled record collides with a row
// that still has unpushed local changes.
type PullPolicy int

const (
	// LastPullWins overwrites the local row with the pulled one.
	LastPullWins PullPolicy = iota
	// SkipPending keeps the local row; the push phase sends it afterwards.
	SkipPending
)

func (p PullPolicy) String() string {
	switch p {
	case LastPullWins:
		return "last_pull_wins"
	case SkipPending:
		return "skip_pending"
	default:
		return fmt.Sprintf("pull_policy(%d)", int(p))
	}
}

// ParsePullPolicy accepts the names returned by String.
func ParsePullPolicy(s string) (PullPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_pull_wins":
		return LastPullWins, nil
	case "skip_pending":
		return SkipPending, nil
	default:
		return LastPullWins, fmt.Errorf("unknown pull policy %q", s)
	}
}

// Options tune a pass. The zero value aborts on a failed pull and lets the
// last pull win.
type Options struct {
	PullPolicy PullPolicy
	// PushAfterPullFailure still pushes local changes when the pull phase
	// failed. The pass is reported failed either way.
	PushAfterPullFailure bool
	// MaxAttachmentBytes caps the size of uploaded files; zero disables it.
	MaxAttachmentBytes int64

	now func() time.Time
}
