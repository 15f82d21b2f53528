package talp

import "github.com/bsc-dlb/talp-go/internal/region"

// MPIInit starts the global region (a no-op if already started), records the
// MPI_Init call, and marks caller useful. Mirrors talp_mpi_init.
func (e *Engine) MPIInit(global *region.Monitor, caller *Sample) error {
	if !e.regions.IsOpen(global) {
		if err := e.StartRegion(global, caller); err != nil {
			return err
		}
	}
	caller.NumMPICalls.AddRlx(1)
	caller.SetState(Useful)
	return nil
}

// MPIFinalize records the MPI_Finalize call and stops the global region.
// Node/app-wide reduction and reporting are the responsibility of
// internal/reduce and internal/report, driven by whatever process runs
// after every rank reaches this point; mirrors talp_mpi_finalize minus the
// MPI-transport gather it performs inline.
func (e *Engine) MPIFinalize(global *region.Monitor, caller *Sample) error {
	caller.NumMPICalls.AddRlx(1)
	return e.StopRegion(global, caller)
}

// updateSampleOnSyncCall mirrors update_sample_on_sync_call: a plain Update
// normally suffices, but when ExternalProfiler is set and this call is a
// blocking collective, every sample is aggregated into open regions instead
// so the shared registry reflects this synchronization point immediately.
func (e *Engine) updateSampleOnSyncCall(caller *Sample, isBlockingCollective bool) {
	if e.Info.ExternalProfiler && isBlockingCollective {
		e.FlushToRegions()
		return
	}
	caller.Update(-1)
}

// IntoSyncCall transitions caller to NotUsefulMPI on entry to a blocking MPI
// call. Mirrors talp_into_sync_call.
func (e *Engine) IntoSyncCall(caller *Sample, isBlockingCollective bool) {
	e.updateSampleOnSyncCall(caller, isBlockingCollective)
	caller.SetState(NotUsefulMPI)
}

// OutOfSyncCall records the completed MPI call and transitions caller back
// to Useful. Mirrors talp_out_of_sync_call.
func (e *Engine) OutOfSyncCall(caller *Sample, isBlockingCollective bool) {
	caller.NumMPICalls.AddRlx(1)
	e.updateSampleOnSyncCall(caller, isBlockingCollective)
	caller.SetState(Useful)
}
