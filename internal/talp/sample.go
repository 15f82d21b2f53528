// Package talp implements the per-thread sample state machine, the
// macrosample aggregation/flush protocol, and the OpenMP parallel-region
// attribution algorithm.
package talp

import (
	"sync"

	talpatomic "github.com/bsc-dlb/talp-go/internal/atomic"
	"github.com/bsc-dlb/talp-go/internal/mytime"
)

// State is one value of talp_sample_t's state enum.
type State int

const (
	Disabled State = iota
	Useful
	NotUsefulMPI
	NotUsefulOMPIn
	NotUsefulOMPOut
	NotUsefulGPU
)

// Sample is the cache-line-granular per-thread accumulator of
// talp_sample_t: one timer per state, a handful of event counters, the
// timestamp of the last state transition or force-update, and the current
// state. All timer/counter fields are mutated with relaxed atomics since
// only the owning thread writes them and flush operations merely drain
// them; last_updated_timestamp and state are guarded by the caller holding
// the engine's samples mutex during a flush, matching the original's
// "single-writer outside of flush" discipline.
type Sample struct {
	Useful          talpatomic.Int64
	NotUsefulMPI    talpatomic.Int64
	NotUsefulOMPIn  talpatomic.Int64
	NotUsefulOMPOut talpatomic.Int64
	NotUsefulGPU    talpatomic.Int64

	NumMPICalls        talpatomic.Int64
	NumOMPParallels    talpatomic.Int64
	NumOMPTasks        talpatomic.Int64
	NumGPURuntimeCalls talpatomic.Int64

	lastUpdated int64
	state       State
}

// NewSample returns a freshly disabled sample stamped at the current time.
func NewSample() *Sample {
	return &Sample{lastUpdated: mytime.Now(), state: Disabled}
}

// State returns the sample's current state without updating its timer.
func (s *Sample) State() State { return s.state }

// LastUpdated returns the timestamp of the last Update (or SetInitialTimestamp) call.
func (s *Sample) LastUpdated() int64 { return s.lastUpdated }

// timerFor returns the atomic timer cell backing the given state, or nil
// for states with no timer (disabled).
func (s *Sample) timerFor(st State) *talpatomic.Int64 {
	switch st {
	case Useful:
		return &s.Useful
	case NotUsefulMPI:
		return &s.NotUsefulMPI
	case NotUsefulOMPIn:
		return &s.NotUsefulOMPIn
	case NotUsefulOMPOut:
		return &s.NotUsefulOMPOut
	case NotUsefulGPU:
		return &s.NotUsefulGPU
	default:
		return nil
	}
}

// Update force-closes the microsample since lastUpdated: the elapsed
// duration (now - lastUpdated) is added to whichever timer corresponds to
// the sample's current state, and lastUpdated is advanced to now. A
// negative timestamp means "use mytime.Now()", matching the original's
// TALP_NO_TIMESTAMP sentinel.
func (s *Sample) Update(now int64) {
	if now < 0 {
		now = mytime.Now()
	}
	duration := now - s.lastUpdated
	s.lastUpdated = now
	if t := s.timerFor(s.state); t != nil {
		t.AddRlx(duration)
	}
}

// SetState transitions the sample to st without touching any timer: the Go
// equivalent of talp_set_sample_state, which only ever assigns the enum.
// Closing out the elapsed time in the *previous* state is the caller's
// responsibility via an explicit Update call (or a flush) first -- call
// sites skip it only when the sample leaves Disabled (sample admission,
// GPUInit), where skipping Update is exactly what lets
// a thread created mid-region have its whole creation-to-first-transition
// gap attributed to its new state instead of being silently dropped.
func (s *Sample) SetState(st State) {
	s.state = st
}

// SetInitialTimestamp overrides lastUpdated without touching any timer.
// Used when a thread is created inside an already-open region: the new
// sample's clock is backdated to the innermost open region's start time so
// the region's elapsed/useful accounting stays consistent; see
// Engine.AdmitThread.
func (s *Sample) SetInitialTimestamp(ts int64) {
	s.lastUpdated = ts
}

// drainTimer atomically reads-and-zeroes a timer cell, the Go equivalent of
// DLB_ATOMIC_EXCH_RLX(&timer, 0).
func drainTimer(c *talpatomic.Int64) int64 {
	for {
		old := c.LoadRlx()
		if c.CAS(old, 0) {
			return old
		}
	}
}

func drainCounter(c *talpatomic.Int64) int64 {
	return drainTimer(c)
}

// flushInto force-updates the sample at now, then drains every timer and
// counter into macrosample, exactly mirroring flush_sample_to_macrosample.
// not_useful_omp_in is deliberately left untouched here: callers flushing a
// parallel-region subset drain it themselves after computing the
// load-imbalance/scheduling split (see FlushSubsetToRegions).
func (s *Sample) flushInto(now int64, m *Macrosample) {
	s.Update(now)
	m.Useful += drainTimer(&s.Useful)
	m.NotUsefulMPI += drainTimer(&s.NotUsefulMPI)
	m.NotUsefulOMPOut += drainTimer(&s.NotUsefulOMPOut)
	m.NotUsefulGPU += drainTimer(&s.NotUsefulGPU)

	m.NumMPICalls += drainCounter(&s.NumMPICalls)
	m.NumOMPParallels += drainCounter(&s.NumOMPParallels)
	m.NumOMPTasks += drainCounter(&s.NumOMPTasks)
	m.NumGPURuntimeCalls += drainCounter(&s.NumGPURuntimeCalls)
}

// GPUSample is the per-device GPU timer triple, flushed and reset as one
// unit (flush_gpu_sample_to_macrosample has no per-timer drain since the
// GPU collector runs asynchronously and reports a finished window at once).
type GPUSample struct {
	mu            sync.Mutex
	Useful        int64
	Communication int64
	Inactive      int64
}

func (g *GPUSample) flushInto(m *Macrosample) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m.GPUUseful += g.Useful
	m.GPUCommunication += g.Communication
	m.GPUInactive += g.Inactive
	g.Useful, g.Communication, g.Inactive = 0, 0, 0
}
