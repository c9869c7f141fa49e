// Package snapshot captures periodic TokenState snapshots to bound replay
// cost. Snapshots are advisory: a failed or skipped capture never affects
// correctness, only how many entries the next reconstruction folds.
package snapshot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"solana-captable/internal/domain"
)

// Policy defaults.
const (
	DefaultEveryEntries = 500
	DefaultPolicySpec   = "every-entries:500"
)

// ErrUnknownPolicy is returned for policy specs outside the supported forms.
var ErrUnknownPolicy = errors.New("unknown snapshot policy")

// Policy decides whether a freshly reconstructed state deserves a snapshot.
type Policy interface {
	// ShouldSnapshot is given the current state and the last snapshot's
	// order key and fold count (zeroes when no snapshot exists yet).
	ShouldSnapshot(state *domain.TokenState, lastSlot, lastEntriesApplied int64) bool

	// Spec returns the config string the policy was built from.
	Spec() string
}

// FromSpec builds a Policy from its config string. Supported forms:
//
//	every-entries:<n>  snapshot once n entries accumulated since the last one
//	slot-interval:<n>  snapshot once the slot advanced n past the last one
//	none               never snapshot
func FromSpec(spec string) (Policy, error) {
	name, arg, hasArg := strings.Cut(spec, ":")
	switch name {
	case "none":
		if hasArg {
			return nil, fmt.Errorf("%w: %q takes no argument", ErrUnknownPolicy, spec)
		}
		return nonePolicy{}, nil

	case "every-entries":
		n, err := parseArg(spec, arg, hasArg)
		if err != nil {
			return nil, err
		}
		return everyEntriesPolicy{n: n}, nil

	case "slot-interval":
		n, err := parseArg(spec, arg, hasArg)
		if err != nil {
			return nil, err
		}
		return slotIntervalPolicy{n: n}, nil

	default:
		return nil, fmt.Errorf("%w: %q (valid: every-entries:<n>, slot-interval:<n>, none)", ErrUnknownPolicy, spec)
	}
}

func parseArg(spec, arg string, hasArg bool) (int64, error) {
	if !hasArg {
		return 0, fmt.Errorf("%w: %q requires a numeric argument", ErrUnknownPolicy, spec)
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q argument must be a positive integer", ErrUnknownPolicy, spec)
	}
	return n, nil
}

type everyEntriesPolicy struct{ n int64 }

func (p everyEntriesPolicy) ShouldSnapshot(state *domain.TokenState, _, lastEntriesApplied int64) bool {
	return state.EntriesApplied-lastEntriesApplied >= p.n
}

func (p everyEntriesPolicy) Spec() string { return fmt.Sprintf("every-entries:%d", p.n) }

type slotIntervalPolicy struct{ n int64 }

func (p slotIntervalPolicy) ShouldSnapshot(state *domain.TokenState, lastSlot, _ int64) bool {
	return state.Slot-lastSlot >= p.n
}

func (p slotIntervalPolicy) Spec() string { return fmt.Sprintf("slot-interval:%d", p.n) }

type nonePolicy struct{}

func (nonePolicy) ShouldSnapshot(*domain.TokenState, int64, int64) bool { return false }

func (nonePolicy) Spec() string { return "none" }
