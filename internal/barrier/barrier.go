// Package barrier implements the node-local shared barrier registry: named,
// reference-counted, process-shared barriers whose participant count
// mutates dynamically as processes attach and detach. internal/shm
// supplies the segment, the spin-rwlock, and the spin-barrier primitives
// this package assembles per slot.
package barrier

import (
	"fmt"

	"github.com/bsc-dlb/talp-go/internal/errs"
	"github.com/bsc-dlb/talp-go/internal/shm"
)

const (
	maxNameLen = 32
	entrySize  = 64

	offName         = 0
	offParticipants = 32
	offArrive       = 36
	offGeneration   = 40
	offNTimes       = 44
	offRWLock       = 48
	offLewi         = 52

	shmKind         = "barrier"
	segmentVersion  = 1
	defaultSizeMult = 1
	baseSlotCount   = 64 // barrier slots per unit of size multiplier
)

// Handle is an index-based reference into the barrier arena, per DESIGN
// NOTES §9: cyclic references are avoided by never storing pointers back
// into the segment, only stable slot indexes.
type Handle struct {
	SlotID int32
	Name   string
}

// Registry owns the barrier shared segment for one process.
type Registry struct {
	seg     *shm.Segment
	slots   int32
	segLock *shm.Segment // alias of seg; call sites lock through seg
}

// Init opens or creates the barrier segment, sized for slots barriers (the
// config option shm-size-multiplier scales this).
func Init(key string, sizeMultiplier int) (*Registry, error) {
	if sizeMultiplier <= 0 {
		sizeMultiplier = defaultSizeMult
	}
	slots := int32(baseSlotCount * sizeMultiplier)
	size := int(slots)*entrySize + shm.CacheLine
	seg, err := shm.Open(shm.Props{
		Size:    size,
		Name:    shmKind,
		Key:     key,
		Version: segmentVersion,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{seg: seg, slots: slots, segLock: seg}, nil
}

func (r *Registry) slot(id int32) []byte {
	entries := r.seg.Entries()
	off := int(id) * entrySize
	return entries[off : off+entrySize]
}

func readName(entry []byte) string {
	end := 0
	for end < maxNameLen && entry[offName+end] != 0 {
		end++
	}
	return string(entry[offName : offName+end])
}

func writeName(entry []byte, name string) {
	for i := range entry[offName : offName+maxNameLen] {
		entry[offName+i] = 0
	}
	copy(entry[offName:offName+maxNameLen], name)
}

func (r *Registry) rwlock(entry []byte) *shm.SpinRWLock {
	return shm.NewSpinRWLock(entry, offRWLock)
}

func (r *Registry) barrierPrim(entry []byte) *shm.SpinBarrier {
	return shm.NewSpinBarrier(entry, offArrive, offGeneration, offParticipants)
}

// Find returns the handle for an existing barrier by name, under the
// segment lock.
func (r *Registry) Find(name string) (Handle, bool) {
	r.seg.Lock()
	defer r.seg.Unlock()

	for i := int32(0); i < r.slots; i++ {
		entry := r.slot(i)
		if readName(entry) == name {
			return Handle{SlotID: i, Name: name}, true
		}
	}
	return Handle{}, false
}

// Register registers (or attaches to) a barrier by name. If found, it
// acquires the per-barrier write-lock with a 1-second timeout, increments
// participants, and re-initializes the spin-barrier with the new count. If
// not found, it claims the first free slot.
func (r *Registry) Register(name string, lewi bool) (Handle, error) {
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	if err := r.seg.Lock(); err != nil {
		return Handle{}, fmt.Errorf("barrier: segment lock: %w", err)
	}
	defer r.seg.Unlock()

	var freeSlot int32 = -1
	for i := int32(0); i < r.slots; i++ {
		entry := r.slot(i)
		switch readName(entry) {
		case name:
			rw := r.rwlock(entry)
			if err := rw.Lock(); err != nil {
				return Handle{}, err // peer presumed hung; returned, not fatal here
			}
			participants := shm.LoadInt32(entry, offParticipants) + 1
			shm.StoreInt32(entry, offParticipants, participants)
			r.barrierPrim(entry).Init(participants)
			rw.Unlock()
			return Handle{SlotID: i, Name: name}, nil
		case "":
			if freeSlot < 0 {
				freeSlot = i
			}
		}
	}

	if freeSlot < 0 {
		return Handle{}, errs.NoMemory
	}

	entry := r.slot(freeSlot)
	writeName(entry, name)
	shm.StoreInt32(entry, offParticipants, 1)
	shm.StoreInt32(entry, offArrive, 0)
	shm.StoreInt32(entry, offGeneration, 0)
	shm.StoreInt32(entry, offNTimes, 0)
	shm.StoreInt32(entry, offRWLock, 0)
	if lewi {
		shm.StoreInt32(entry, offLewi, 1)
	} else {
		shm.StoreInt32(entry, offLewi, 0)
	}
	r.barrierPrim(entry).Init(1)

	return Handle{SlotID: freeSlot, Name: name}, nil
}

// Attach is an alias of Register for a caller that already knows the
// barrier exists but still needs to bump participants and re-arm the
// primitive; kept distinct from Register so attach() and detach() remain
// separate verbs from register().
func (r *Registry) Attach(h Handle) error {
	_, err := r.Register(h.Name, r.IsLewi(h))
	return err
}

// IsLewi reports the per-barrier LeWI-on-barrier flag.
func (r *Registry) IsLewi(h Handle) bool {
	entry := r.slot(h.SlotID)
	return shm.LoadInt32(entry, offLewi) != 0
}

// LewiHooks lets the caller signal entry/exit around the blocking wait when
// this barrier opted into LeWI-on-barrier; the core itself knows nothing
// about LeWI's resource-redistribution policy, it only calls the two hooks
// symmetrically.
type LewiHooks struct {
	IntoBlockingCall  func()
	OutOfBlockingCall func()
}

// Barrier performs one barrier crossing: read-lock, then arrive and wait on
// the spin barrier; the last caller to arrive increments ntimes, so each
// crossing is counted once.
func (r *Registry) Barrier(h Handle, hooks *LewiHooks) error {
	entry := r.slot(h.SlotID)
	rw := r.rwlock(entry)
	if err := rw.RLock(); err != nil {
		return err
	}
	defer rw.RUnlock()

	lewi := shm.LoadInt32(entry, offLewi) != 0
	if lewi && hooks != nil && hooks.IntoBlockingCall != nil {
		hooks.IntoBlockingCall()
	}

	lastOut := r.barrierPrim(entry).Wait()

	if lewi && hooks != nil && hooks.OutOfBlockingCall != nil {
		hooks.OutOfBlockingCall()
	}

	if lastOut {
		shm.AddInt32(entry, offNTimes, 1)
	}
	return nil
}

// NTimes returns the number of completed crossings of this barrier.
func (r *Registry) NTimes(h Handle) int32 {
	return shm.LoadInt32(r.slot(h.SlotID), offNTimes)
}

// Detach decrements participants; if it reaches zero, the barrier's
// primitive and rw-lock are torn down and the slot is zeroed. Returns the
// remaining participant count.
func (r *Registry) Detach(h Handle) (int, error) {
	if err := r.seg.Lock(); err != nil {
		return 0, fmt.Errorf("barrier: segment lock: %w", err)
	}
	defer r.seg.Unlock()

	entry := r.slot(h.SlotID)
	rw := r.rwlock(entry)
	if err := rw.Lock(); err != nil {
		return 0, err // peer presumed hung; returned, not fatal here
	}

	remaining := shm.LoadInt32(entry, offParticipants) - 1
	if remaining <= 0 {
		for i := range entry {
			entry[i] = 0
		}
		return 0, nil
	}

	shm.StoreInt32(entry, offParticipants, remaining)
	r.barrierPrim(entry).Init(remaining)
	rw.Unlock()
	return int(remaining), nil
}

// Finalize releases the registry's reference to the segment.
func (r *Registry) Finalize() error {
	return r.seg.Finalize(true)
}

// PrintInfo writes a human-readable dump of all registered barriers.
func (r *Registry) PrintInfo(w interface{ Write([]byte) (int, error) }) {
	r.seg.Lock()
	defer r.seg.Unlock()
	for i := int32(0); i < r.slots; i++ {
		entry := r.slot(i)
		name := readName(entry)
		if name == "" {
			continue
		}
		fmt.Fprintf(ioWriter{w}, "barrier %-32s participants=%d arrive=%d ntimes=%d\n",
			name, shm.LoadInt32(entry, offParticipants), shm.LoadInt32(entry, offArrive),
			shm.LoadInt32(entry, offNTimes))
	}
}

type ioWriter struct {
	w interface{ Write([]byte) (int, error) }
}

func (iw ioWriter) Write(p []byte) (int, error) { return iw.w.Write(p) }
