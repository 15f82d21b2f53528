package events

// MPIInit starts the global monitoring region and records the MPI_Init
// call for the caller's slot. Mirrors talp_mpi_init; a no-op for observer
// slots.
func (s *Source) MPIInit(slot int) error {
	if s.isObserver(slot) {
		return nil
	}
	return s.Engine.MPIInit(s.Regions.Global(), s.Engine.Sample(slot))
}

// MPIFinalize records the MPI_Finalize call and stops the global region.
// Mirrors talp_mpi_finalize's per-process half; node/app reduction and
// reporting are driven separately once every rank reaches this point.
func (s *Source) MPIFinalize(slot int) error {
	if s.isObserver(slot) {
		return nil
	}
	return s.Engine.MPIFinalize(s.Regions.Global(), s.Engine.Sample(slot))
}

// IntoSyncCall marks slot's sample not-useful-mpi on entry to a blocking
// MPI call. Mirrors talp_into_sync_call.
func (s *Source) IntoSyncCall(slot int, isBlockingCollective bool) {
	if s.isObserver(slot) {
		return
	}
	s.Engine.IntoSyncCall(s.Engine.Sample(slot), isBlockingCollective)
}

// OutOfSyncCall records the completed MPI call and marks slot's sample
// useful again. Mirrors talp_out_of_sync_call.
func (s *Source) OutOfSyncCall(slot int, isBlockingCollective bool) {
	if s.isObserver(slot) {
		return
	}
	s.Engine.OutOfSyncCall(s.Engine.Sample(slot), isBlockingCollective)
}
