// Package region implements the in-process region store: a named-by-region
// map of monitoring regions, a LIFO stack of currently open regions,
// anonymous-name generation, and the --talp-region-select filter grammar.
// This package owns bookkeeping only — flushing thread samples into a
// region's timers on start/stop is internal/talp's job, which calls
// OpenRegion/CloseRegion with a timestamp it has already computed from the
// flush.
package region

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bsc-dlb/talp-go/internal/errs"
)

// GlobalName is the distinguished always-present region created at init,
// matched case-insensitively against caller-supplied names.
const GlobalName = "Global"

// LastOpen is the sentinel name passed to Stop to target the innermost
// currently open region instead of a named one.
const LastOpen = "*last-open*"

// allName is reserved: a region may never be named "all" (case-insensitive),
// since that string is the region-select wildcard.
const allName = "all"

var anonymousID int64

func nextAnonymousID() int64 {
	return atomic.AddInt64(&anonymousID, 1)
}

// Monitor is a named measurement scope, the unit of start/stop/reset.
type Monitor struct {
	Name         string
	ID           int64
	NodeSharedID int32 // slot id in the TALP shared registry, -1 if unregistered

	// NumCPUs is the high-water mark of CPUs observed contributing to this
	// region across every flush (max, not sum); AvgCPUs is a separately
	// reported running average set by the OpenMP/MPI instrumentation layer.
	NumCPUs int
	AvgCPUs float64

	NumMeasurements    int64
	NumResets          int64
	NumMPICalls        int64
	NumOMPParallels    int64
	NumOMPTasks        int64
	NumGPURuntimeCalls int64

	StartTime int64
	StopTime  int64

	ElapsedTime      int64
	UsefulTime       int64
	MPITime          int64
	OMPLoadImbalance int64
	OMPScheduling    int64
	OMPSerialization int64
	GPURuntime       int64

	GPUUseful        int64
	GPUCommunication int64
	GPUInactive      int64

	Started  bool
	Internal bool
	Enabled  bool
}

// Store owns every region registered by one process.
type Store struct {
	mu      sync.Mutex
	regions map[string]*Monitor
	order   []string
	open    []*Monitor // LIFO: open[len-1] is innermost
	filter  Filter
	global  *Monitor
}

// NewStore creates the region store with the distinguished global region
// already registered at init.
func NewStore(regionSelect string) *Store {
	s := &Store{
		regions: make(map[string]*Monitor),
		filter:  ParseFilter(regionSelect),
	}
	g, err := s.Register(GlobalName)
	if err != nil {
		// Register only fails on reserved names, which does not apply to
		// the first-ever registration.
		panic(fmt.Sprintf("region: could not create global region: %v", err))
	}
	s.global = g
	return s
}

// Global returns the always-present global region.
func (s *Store) Global() *Monitor {
	return s.global
}

func isGlobalAlias(name string) bool {
	return strings.EqualFold(name, GlobalName)
}

// Register returns the existing monitor for name, or creates one. An empty
// name produces a generated "Anonymous Region N" monitor, never reused.
// "all" and LastOpen are reserved and rejected.
func (s *Store) Register(name string) (*Monitor, error) {
	if name == LastOpen || strings.EqualFold(name, allName) {
		return nil, fmt.Errorf("region: %q is a reserved region name", name)
	}

	anonymous := name == ""
	if isGlobalAlias(name) {
		name = GlobalName
	}

	if !anonymous {
		s.mu.Lock()
		m, ok := s.regions[name]
		s.mu.Unlock()
		if ok {
			return m, nil
		}
	} else {
		name = fmt.Sprintf("Anonymous Region %d", nextAnonymousID())
	}

	m := &Monitor{
		Name:         name,
		ID:           nextAnonymousID(),
		NodeSharedID: -1,
		Enabled:      s.filter.Allows(name),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.regions[name]; ok {
		// Lost the race against a concurrent registration of the same name.
		return existing, nil
	}
	s.regions[name] = m
	s.order = append(s.order, name)
	return m, nil
}

// Find looks up an already-registered region by name without creating one.
func (s *Store) Find(name string) (*Monitor, bool) {
	if isGlobalAlias(name) {
		name = GlobalName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.regions[name]
	return m, ok
}

// List returns every registered region in registration order.
func (s *Store) List() []*Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Monitor, len(s.order))
	for i, name := range s.order {
		out[i] = s.regions[name]
	}
	return out
}

// OpenRegion marks m started at startTime and pushes it onto the open
// stack. Returns errs.Noupdt if m is already started or disabled by the
// region-select filter.
func (s *Store) OpenRegion(m *Monitor, startTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Started || !m.Enabled {
		return errs.Noupdt
	}
	m.Started = true
	m.StartTime = startTime
	m.StopTime = 0
	s.open = append(s.open, m)
	return nil
}

// CloseRegion marks m stopped at stopTime, accumulates elapsed time, and
// removes it from the open stack wherever it sits (stopping a region that
// is not the innermost produces non-nested timings; documented behaviour).
// Returns errs.Noupdt if m was not started.
func (s *Store) CloseRegion(m *Monitor, stopTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.Started {
		return errs.Noupdt
	}
	m.Started = false
	m.StopTime = stopTime
	m.ElapsedTime += stopTime - m.StartTime
	m.NumMeasurements++
	s.removeFromOpenLocked(m)
	return nil
}

// StopLastOpen closes the innermost open region (the stack top) and
// returns it. Returns errs.NoEntry if no region is currently open.
func (s *Store) StopLastOpen(stopTime int64) (*Monitor, error) {
	s.mu.Lock()
	if len(s.open) == 0 {
		s.mu.Unlock()
		return nil, errs.NoEntry
	}
	m := s.open[len(s.open)-1]
	s.mu.Unlock()

	if err := s.CloseRegion(m, stopTime); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenRegions returns a snapshot of the currently open regions, innermost
// last (stack order), for macrosample distribution.
func (s *Store) OpenRegions() []*Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Monitor, len(s.open))
	copy(out, s.open)
	return out
}

// LastOpen returns the innermost currently open region without closing it,
// or false if none is open.
func (s *Store) LastOpen() (*Monitor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.open) == 0 {
		return nil, false
	}
	return s.open[len(s.open)-1], true
}

// IsOpen reports whether m is currently started.
func (s *Store) IsOpen(m *Monitor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.Started
}

// Reset closes m if started (implicit stop) and zeroes every counter
// except Name, ID, NodeSharedID, and the incremented NumResets.
func (s *Store) Reset(m *Monitor) {
	s.mu.Lock()
	wasStarted := m.Started
	if wasStarted {
		m.Started = false
		s.removeFromOpenLocked(m)
	}
	s.mu.Unlock()

	*m = Monitor{
		Name:         m.Name,
		ID:           m.ID,
		NodeSharedID: m.NodeSharedID,
		Enabled:      m.Enabled,
		Internal:     m.Internal,
		NumResets:    m.NumResets + 1,
	}
}

// SetInternal marks a region as internal (excluded from reports).
func (s *Store) SetInternal(m *Monitor, internal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Internal = internal
}

func (s *Store) removeFromOpenLocked(m *Monitor) {
	for i, o := range s.open {
		if o == m {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}
