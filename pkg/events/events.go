// Package events is the thin event-source adapter layer: one file per
// instrumented runtime (MPI, OpenMP, GPU) translating that runtime's
// callback shape into calls against internal/talp's state machine.
//
// Every hook here is addressed by an explicit worker-slot index rather
// than a goroutine id: Go has no stable thread-local storage, so whatever
// runs each OS thread or OpenMP worker (a cgo callback, a pthread created
// by a wrapped runtime) is responsible for knowing and passing its own
// slot, exactly the role a thread-indexed C array plays in the original.
package events

import (
	"github.com/bsc-dlb/talp-go/internal/region"
	"github.com/bsc-dlb/talp-go/internal/talp"
)

// Source binds one process's engine and region store to the event hooks
// below, and tracks which slots belong to observer threads: per
// talp_mpi.c's thread_is_observer guard, an observer may call into MPI but
// TALP must silently ignore it rather than mutate any sample.
type Source struct {
	Engine  *talp.Engine
	Regions *region.Store

	observers map[int]bool
}

// NewSource creates an event source over an already-initialized engine and
// region store.
func NewSource(engine *talp.Engine, regions *region.Store) *Source {
	return &Source{Engine: engine, Regions: regions}
}

// MarkObserver flags slot as belonging to an observer thread: a thread
// attached only to read shared state, never to be instrumented.
func (s *Source) MarkObserver(slot int) {
	if s.observers == nil {
		s.observers = make(map[int]bool)
	}
	s.observers[slot] = true
}

func (s *Source) isObserver(slot int) bool {
	return s.observers != nil && s.observers[slot]
}
