package talp

import (
	"sync"

	"github.com/bsc-dlb/talp-go/internal/errs"
	"github.com/bsc-dlb/talp-go/internal/mytime"
	"github.com/bsc-dlb/talp-go/internal/region"
	"github.com/bsc-dlb/talp-go/internal/talpshm"
)

// Macrosample is the transient aggregation of one or more Samples, built
// only at flush time and immediately folded into every open region.
// Mirrors talp_macrosample_t, including the load-imbalance/scheduling split
// that replaces a raw not_useful_omp_in before it reaches a region.
type Macrosample struct {
	Useful              int64
	NotUsefulMPI        int64
	NotUsefulOMPInLB    int64
	NotUsefulOMPInSched int64
	NotUsefulOMPOut     int64
	NotUsefulGPU        int64

	GPUUseful        int64
	GPUCommunication int64
	GPUInactive      int64

	NumMPICalls        int64
	NumOMPParallels    int64
	NumOMPTasks        int64
	NumGPURuntimeCalls int64
}

// Info is the process-wide descriptor bundling the flags that shape how
// samples are collected and flushed: talp_info_t, minus everything PAPI
// (permanently disabled, kept only so downstream JSON shape matches).
type Info struct {
	// ExternalProfiler mirrors --talp-external-profiler: when set, every
	// region flush additionally publishes mpi/useful time into the shared
	// registry so a third-party observer process can read them.
	ExternalProfiler bool
	// PAPI is always false; hardware counters are out of scope.
	PAPI bool
	// HaveGPU reports whether a GPU plugin was registered.
	HaveGPU bool
	// Model names the configured POP efficiency model variant (hybrid, etc).
	Model string
}

// Engine owns every thread sample of one process, the shared mutex
// protecting flush-time force-updates, and the optional GPU sample plus
// shared-registry handle used when ExternalProfiler is set. It does not own
// region bookkeeping (open/close/reset): that lives in internal/region,
// consulted here only for Store.OpenRegions during a flush.
type Engine struct {
	Info Info

	samplesMu sync.Mutex
	samples   []*Sample

	gpu *GPUSample

	regions *region.Store
	shared  *talpshm.Registry

	l1 *parallelPool
}

// NewEngine creates an engine with numWorkers preallocated, disabled
// samples -- one per CPU slot, matching talp_info->samples[ncpus].
func NewEngine(info Info, regions *region.Store, shared *talpshm.Registry, numWorkers int) *Engine {
	samples := make([]*Sample, numWorkers)
	for i := range samples {
		samples[i] = NewSample()
	}
	return &Engine{
		Info:    info,
		samples: samples,
		gpu:     &GPUSample{},
		regions: regions,
		shared:  shared,
	}
}

// Sample returns the sample owned by worker slot idx. Slot indices are
// assigned by the event-source adapters in pkg/events (one per OS thread or
// OpenMP worker), never derived from a goroutine id: Go has no stable
// thread-local storage, so callers thread the slot index explicitly,
// exactly the role CPU-indexed arrays play in the original.
func (e *Engine) Sample(idx int) *Sample {
	return e.samples[idx]
}

// NumWorkers returns the number of preallocated sample slots.
func (e *Engine) NumWorkers() int {
	return len(e.samples)
}

// GPU returns the engine's single GPU sample accumulator.
func (e *Engine) GPU() *GPUSample {
	return e.gpu
}

// AdmitThread backdates a freshly disabled sample's clock to ts: the edge
// case for a thread created inside an already-open region, whose initial
// timestamp must match the innermost open region's start time so that
// region's accounting is not short-changed by the thread's creation
// latency. Any other currently open (nested) regions are then corrected:
// their omp_serialization_time grows by the gap between ts and their own
// start time, since that gap will now never be attributed by a flush.
func (e *Engine) AdmitThread(sample *Sample, ts int64) {
	sample.SetInitialTimestamp(ts)
	e.correctNestedSerialization(sample)
}

// correctNestedSerialization mirrors update_serialization_in_nested_regions:
// every open region except the innermost accrues serialization time equal
// to sample.LastUpdated() - region.StartTime.
func (e *Engine) correctNestedSerialization(sample *Sample) {
	open := e.regions.OpenRegions()
	if len(open) < 2 {
		return
	}
	ts := sample.LastUpdated()
	for _, m := range open[:len(open)-1] {
		m.OMPSerialization += ts - m.StartTime
	}
}

// applyMacrosample is update_regions_with_macrosample: every currently open
// region accrues the macrosample's timers/stats, and -- if ExternalProfiler
// is set -- the region's running mpi/useful totals are republished into the
// shared registry for this process's node-shared slot.
func (e *Engine) applyMacrosample(m *Macrosample, numCPUs int) {
	for _, mon := range e.regions.OpenRegions() {
		if numCPUs > mon.NumCPUs {
			mon.NumCPUs = numCPUs
		}

		mon.UsefulTime += m.Useful
		mon.MPITime += m.NotUsefulMPI
		mon.OMPLoadImbalance += m.NotUsefulOMPInLB
		mon.OMPScheduling += m.NotUsefulOMPInSched
		mon.OMPSerialization += m.NotUsefulOMPOut
		mon.GPURuntime += m.NotUsefulGPU

		mon.GPUUseful += m.GPUUseful
		mon.GPUCommunication += m.GPUCommunication
		mon.GPUInactive += m.GPUInactive

		mon.NumMPICalls += m.NumMPICalls
		mon.NumOMPParallels += m.NumOMPParallels
		mon.NumOMPTasks += m.NumOMPTasks
		mon.NumGPURuntimeCalls += m.NumGPURuntimeCalls

		if e.Info.ExternalProfiler && e.shared != nil && mon.NodeSharedID >= 0 {
			if err := e.shared.SetTimes(mon.NodeSharedID, mon.MPITime, mon.UsefulTime); err != nil {
				errs.Fatal(errs.DefaultLogger(), "talp: publishing times for region %q: %v", mon.Name, err)
			}
		}
	}
}

// SetAvgCPUs updates m's reported average CPU count and, when
// ExternalProfiler is set, republishes it into the shared registry.
// Mirrors the avg_cpus side of talp_openmp_init.
func (e *Engine) SetAvgCPUs(m *region.Monitor, avgCPUs float64) error {
	m.AvgCPUs = avgCPUs
	if e.Info.ExternalProfiler && e.shared != nil && m.NodeSharedID >= 0 {
		return e.shared.SetAvgCPUs(m.NodeSharedID, float32(avgCPUs))
	}
	return nil
}

// FlushToRegions force-updates and aggregates every sample slot into a
// single macrosample, optionally folds in the GPU sample, and applies the
// result to every open region. Mirrors talp_flush_samples_to_regions.
func (e *Engine) FlushToRegions() {
	var macro Macrosample
	var numCPUs int

	e.samplesMu.Lock()
	now := mytime.Now()
	numCPUs = len(e.samples)
	for _, s := range e.samples {
		// not_useful_omp_in only ever accrues inside an open parallel
		// region, which always flushes through FlushSubsetToRegions before
		// a full flush can observe it; it is left untouched here.
		s.flushInto(now, &macro)
	}
	e.samplesMu.Unlock()

	if e.Info.HaveGPU {
		e.gpu.flushInto(&macro)
	}

	e.applyMacrosample(&macro, numCPUs)
}

// FlushSubsetToRegions flushes only the given subset of samples (the
// threads of one OpenMP parallel region), splitting their not_useful_omp_in
// time into a load-imbalance share and a scheduling share before folding it
// into the macrosample: mirrors talp_flush_sample_subset_to_regions.
//
// The split: every sample in the subset is force-updated, then the minimum
// not_useful_omp_in among them is taken as the unavoidable scheduling
// overhead common to the whole team (scheduling = min * len(subset)); the
// remainder each sample accrued beyond that minimum is its own load
// imbalance (sum of sample.not_useful_omp_in - min).
func (e *Engine) FlushSubsetToRegions(subset []*Sample) {
	if len(subset) == 0 {
		return
	}

	var macro Macrosample

	e.samplesMu.Lock()
	now := mytime.Now()
	minOMPIn := int64(-1)
	for _, s := range subset {
		s.Update(now)
		v := s.NotUsefulOMPIn.LoadRlx()
		if minOMPIn < 0 || v < minOMPIn {
			minOMPIn = v
		}
	}

	schedTimer := minOMPIn * int64(len(subset))
	var lbTimer int64
	for _, s := range subset {
		lbTimer += drainTimer(&s.NotUsefulOMPIn) - minOMPIn
		s.flushInto(now, &macro)
	}
	macro.NotUsefulOMPInLB = lbTimer
	macro.NotUsefulOMPInSched = schedTimer
	e.samplesMu.Unlock()

	e.applyMacrosample(&macro, len(subset))
}
