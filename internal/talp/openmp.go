package talp

import "sync"

// ParallelRegion tracks the team of sample slots participating in one
// OpenMP parallel construct, mirroring omptool_parallel_data_t's
// talp_parallel_data field. Level-1 regions reuse the engine's persistent
// team array (parallel_samples_l1 in the original); nested regions (level >
// 1) get a freshly allocated array each time, since they can be entered
// concurrently by different level-1 siblings.
type ParallelRegion struct {
	Level   int
	samples []*Sample
}

// parallelPool is the engine's reusable level-1 team array: resized, never
// reallocated smaller, exactly like parallel_samples_l1's realloc-on-growth
// discipline.
type parallelPool struct {
	mu      sync.Mutex
	samples []*Sample
}

func (p *parallelPool) acquire(size int) []*Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cap(p.samples) < size {
		p.samples = make([]*Sample, size)
	}
	return p.samples[:size]
}

// ParallelBegin starts tracking a parallel construct of the given team
// size. Level-1 regions reuse the engine's persistent array; deeper levels
// allocate their own, matching talp_openmp_parallel_begin. The calling
// sample's NumOMPParallels counter is incremented.
func (e *Engine) ParallelBegin(caller *Sample, level, teamSize int) *ParallelRegion {
	caller.NumOMPParallels.AddRlx(1)

	var samples []*Sample
	if level == 1 {
		samples = e.l1Pool().acquire(teamSize)
	} else {
		samples = make([]*Sample, teamSize)
	}
	return &ParallelRegion{Level: level, samples: samples}
}

func (e *Engine) l1Pool() *parallelPool {
	if e.l1 == nil {
		e.l1 = &parallelPool{}
	}
	return e.l1
}

// IntoParallelFunction assigns sample as team-worker index of pr (the
// primary thread occupies index 0 and is assigned by the caller before the
// team fans out), force-updates it, and marks it useful. Mirrors
// talp_openmp_into_parallel_function.
func (e *Engine) IntoParallelFunction(pr *ParallelRegion, index int, sample *Sample) {
	if pr.samples[index] != sample {
		pr.samples[index] = sample
	}
	sample.Update(-1)
	sample.SetState(Useful)
}

// OutofParallelFunction force-updates sample and marks it not-useful-out:
// the thread left its parallel work function but hasn't reached the
// region's end yet (e.g. it's spinning at an implicit barrier). Mirrors
// talp_openmp_outof_parallel_function.
func (e *Engine) OutofParallelFunction(sample *Sample) {
	sample.Update(-1)
	sample.SetState(NotUsefulOMPOut)
}

// ThreadBegin marks a freshly spawned worker's sample not-useful-out,
// unless it is the primary thread (already useful, sample.State() !=
// Disabled). Mirrors talp_openmp_thread_begin, minus PAPI counter init.
// When the sample was disabled (a genuinely new thread), its clock is
// backdated via Engine.AdmitThread using innermost's start time so its
// very first microsample isn't wrongly attributed to thread-creation
// latency; the caller passes innermostStart for that purpose.
func (e *Engine) ThreadBegin(sample *Sample, innermostStart int64) {
	if sample.State() == Disabled {
		e.AdmitThread(sample, innermostStart)
		sample.SetState(NotUsefulOMPOut)
	}
}

// ThreadEnd force-updates and disables sample: the worker thread is about
// to exit. Mirrors talp_openmp_thread_end.
func (e *Engine) ThreadEnd(sample *Sample) {
	sample.Update(-1)
	sample.SetState(Disabled)
}

// ParallelEnd force-updates the calling sample, flushes the team (handling
// the level-1/nested split below), marks the caller useful, and force-
// transitions any team-worker still parked in NotUsefulOMPIn to
// NotUsefulOMPOut -- it never received an explicit transition because it
// spun past the parallel region's end before being observed. Mirrors
// talp_openmp_parallel_end.
func (e *Engine) ParallelEnd(pr *ParallelRegion, caller *Sample) {
	caller.Update(-1)

	switch {
	case pr.Level == 1:
		e.FlushSubsetToRegions(pr.samples)
	case pr.Level > 1:
		// The primary thread of a nested parallel region (index 0) keeps
		// its own sample until it finishes as a non-primary team-worker or
		// reaches the level-1 parallel region; only indices [1:] flush here.
		e.FlushSubsetToRegions(pr.samples[1:])
	}

	caller.SetState(Useful)

	for _, worker := range pr.samples[1:] {
		if worker.State() == NotUsefulOMPIn {
			worker.state = NotUsefulOMPOut
		}
	}
}

// IntoParallelSync marks sample not-useful-in: it reached an explicit
// barrier or other synchronization point inside a parallel region and is
// now waiting on its teammates. Mirrors talp_openmp_into_parallel_sync.
func (e *Engine) IntoParallelSync(sample *Sample) {
	sample.Update(-1)
	sample.SetState(NotUsefulOMPIn)
}

// OutofParallelSync marks sample useful again after the synchronization
// point above resolves. Mirrors talp_openmp_outof_parallel_sync.
func (e *Engine) OutofParallelSync(sample *Sample) {
	sample.Update(-1)
	sample.SetState(Useful)
}

// TaskCreate records a new OpenMP task without touching sample's state or
// timers. Mirrors talp_openmp_task_create.
func (e *Engine) TaskCreate(sample *Sample) {
	sample.NumOMPTasks.AddRlx(1)
}

// TaskComplete force-updates sample and marks it not-useful-in: the task
// finished its own work function and returned to waiting on its team.
// Mirrors talp_openmp_task_complete.
func (e *Engine) TaskComplete(sample *Sample) {
	sample.Update(-1)
	sample.SetState(NotUsefulOMPIn)
}

// TaskSwitch force-updates sample and marks it useful: the running thread
// just switched onto a different task's work function. Mirrors
// talp_openmp_task_switch.
func (e *Engine) TaskSwitch(sample *Sample) {
	sample.Update(-1)
	sample.SetState(Useful)
}
