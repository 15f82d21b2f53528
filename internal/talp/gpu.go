package talp

import "github.com/bsc-dlb/talp-go/internal/gpu"

// GPUInit marks the engine as GPU-instrumented and forces the caller useful
// if it was still disabled. It does not flush, does not change a caller
// that is already in any other state, and does not open any region: the
// global region is started by MPIInit or an explicit StartRegion.
func (e *Engine) GPUInit(caller *Sample) {
	e.Info.HaveGPU = true
	if caller.State() == Disabled {
		caller.SetState(Useful)
	}
}

// GPUFinalize drains the configured plugin's pending measurements (if any)
// into the engine's GPU sample. Mirrors talp_gpu_finalize's call into
// talp_gpu_sync_measurements.
func (e *Engine) GPUFinalize(plugin gpu.Plugin) {
	if plugin == nil {
		return
	}
	e.GPUUpdateSample(plugin.UpdateSample())
}

// GPUUpdateSample accumulates one finished measurement window into the
// engine's GPU sample, to be folded into the next FlushToRegions. Mirrors
// talp_gpu_update_sample.
func (e *Engine) GPUUpdateSample(m gpu.Measurements) {
	e.gpu.mu.Lock()
	defer e.gpu.mu.Unlock()
	e.gpu.Useful += m.Useful
	e.gpu.Communication += m.Communication
	e.gpu.Inactive += m.Inactive
}

// GPUResetter is implemented by a Plugin whose backing collector keeps a
// safe-timestamp watermark (see gpu.RecordCollector.Reset). GPUReset
// forwards to it when the caller's device or region resets, so any record
// still in flight from before the reset point is discarded instead of
// being attributed to the window that follows.
type GPUResetter interface {
	Reset(ts uint64)
}

// GPUReset advances plugin's safe-timestamp watermark to ts if it
// implements GPUResetter, a no-op otherwise.
func (e *Engine) GPUReset(plugin gpu.Plugin, ts uint64) {
	if r, ok := plugin.(GPUResetter); ok {
		r.Reset(ts)
	}
}

// GPUIntoRuntimeAPI force-updates caller and transitions it to
// NotUsefulGPU, marking the thread as blocked inside a GPU runtime call.
// Mirrors talp_gpu_into_runtime_api.
func (e *Engine) GPUIntoRuntimeAPI(caller *Sample) {
	caller.Update(-1)
	caller.SetState(NotUsefulGPU)
}

// GPUOutOfRuntimeAPI counts the finished runtime call, force-updates
// caller, and transitions it back to Useful. Mirrors
// talp_gpu_out_of_runtime_api.
func (e *Engine) GPUOutOfRuntimeAPI(caller *Sample) {
	caller.NumGPURuntimeCalls.AddRlx(1)
	caller.Update(-1)
	caller.SetState(Useful)
}
