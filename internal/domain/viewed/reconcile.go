package viewed

import "github.com/ganot/atelier/internal/ordered"

// State describes what a read produced.
type State int

const (
	// StateLoading means no read has completed yet. Reconcile never returns
	// it; views start in it.
	StateLoading State = iota
	// StateNoData means neither source had anything; the section is hidden.
	StateNoData
	// StateReady means Items holds at least one entry.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNoData:
		return "no_data"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Source records which side won.
type Source string

const (
	SourceNone   Source = "none"
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Result is the single ordered list observers read.
type Result struct {
	Items  []TrackedItem
	State  State
	Source Source
}

// Reconcile merges the two sources. A non-empty remote list is authoritative
// and replaces the local one wholesale; otherwise local is used. The output
// never exceeds MaxItems.
func Reconcile(local, remote []TrackedItem) Result {
	switch {
	case len(remote) > 0:
		return Result{Items: capped(remote), State: StateReady, Source: SourceRemote}
	case len(local) > 0:
		return Result{Items: capped(local), State: StateReady, Source: SourceLocal}
	default:
		return Result{Items: []TrackedItem{}, State: StateNoData, Source: SourceNone}
	}
}

func capped(items []TrackedItem) []TrackedItem {
	items = ordered.Cap(items, MaxItems)
	out := make([]TrackedItem, len(items))
	copy(out, items)
	return out
}
