package events

import "github.com/bsc-dlb/talp-go/internal/talp"

// ParallelBegin starts tracking a parallel construct entered by slot, team
// size teamSize at nesting level. Mirrors talp_openmp_parallel_begin.
func (s *Source) ParallelBegin(slot, level, teamSize int) *talp.ParallelRegion {
	return s.Engine.ParallelBegin(s.Engine.Sample(slot), level, teamSize)
}

// IntoParallelFunction assigns slot into team position index of pr and
// marks it useful. Mirrors talp_openmp_into_parallel_function.
func (s *Source) IntoParallelFunction(pr *talp.ParallelRegion, index, slot int) {
	s.Engine.IntoParallelFunction(pr, index, s.Engine.Sample(slot))
}

// OutofParallelFunction marks slot not-useful-out: it left its parallel
// work function but hasn't reached the region's end. Mirrors
// talp_openmp_outof_parallel_function.
func (s *Source) OutofParallelFunction(slot int) {
	s.Engine.OutofParallelFunction(s.Engine.Sample(slot))
}

// ThreadBegin admits a freshly spawned worker thread at slot, backdating
// its clock to innermostStart if it was never used before. Mirrors
// talp_openmp_thread_begin.
func (s *Source) ThreadBegin(slot int, innermostStart int64) {
	s.Engine.ThreadBegin(s.Engine.Sample(slot), innermostStart)
}

// ThreadEnd disables slot's sample ahead of the worker thread exiting.
// Mirrors talp_openmp_thread_end.
func (s *Source) ThreadEnd(slot int) {
	s.Engine.ThreadEnd(s.Engine.Sample(slot))
}

// ParallelEnd closes out pr, flushing its team into open regions, entered
// by the primary thread at slot. Mirrors talp_openmp_parallel_end.
func (s *Source) ParallelEnd(pr *talp.ParallelRegion, slot int) {
	s.Engine.ParallelEnd(pr, s.Engine.Sample(slot))
}

// IntoParallelSync marks slot not-useful-in: it reached an explicit
// barrier inside a parallel region. Mirrors talp_openmp_into_parallel_sync.
func (s *Source) IntoParallelSync(slot int) {
	s.Engine.IntoParallelSync(s.Engine.Sample(slot))
}

// OutofParallelSync marks slot useful again once the synchronization point
// above resolves. Mirrors talp_openmp_outof_parallel_sync.
func (s *Source) OutofParallelSync(slot int) {
	s.Engine.OutofParallelSync(s.Engine.Sample(slot))
}

// TaskCreate records a new OpenMP task created by slot. Mirrors
// talp_openmp_task_create.
func (s *Source) TaskCreate(slot int) {
	s.Engine.TaskCreate(s.Engine.Sample(slot))
}

// TaskComplete marks slot not-useful-in after its task's work function
// returns. Mirrors talp_openmp_task_complete.
func (s *Source) TaskComplete(slot int) {
	s.Engine.TaskComplete(s.Engine.Sample(slot))
}

// TaskSwitch marks slot useful after it switches onto a different task's
// work function. Mirrors talp_openmp_task_switch.
func (s *Source) TaskSwitch(slot int) {
	s.Engine.TaskSwitch(s.Engine.Sample(slot))
}
