package gpu

// Measurements is one finished window of GPU activity reported by a
// Plugin: useful (kernel) time, communication (memory transfer) time, and
// inactive time, all nanoseconds. Mirrors talp_gpu_measurements_t.
type Measurements struct {
	Useful        int64
	Communication int64
	Inactive      int64
}

// Plugin is the trait a GPU backend implements to feed the engine's GPU
// sample. There is no dlopen-style runtime loading here -- a process wires
// in a concrete Plugin (CUDA, ROCm, or the NoopPlugin below) at startup.
// Mirrors talp_gpu.h's trigger_update_func_t callback plus the affinity
// query used when reporting which CPUs a device is attached to.
type Plugin interface {
	// UpdateSample asks the plugin to compute and return the measurements
	// accumulated since the last call, merging and cleaning any raw event
	// records internally (see CleanAndMerge). Called by
	// talp.Engine.GPUFinalize.
	UpdateSample() Measurements
	// GetAffinity returns the CPU ids the device is considered local to,
	// used only for report annotation.
	GetAffinity() []int
}

// NoopPlugin is the default Plugin when no GPU backend is configured: it
// always reports zero activity, so draining it through GPUFinalize adds
// nothing to the GPU sample; it exists so callers can depend on a non-nil
// Plugin unconditionally.
type NoopPlugin struct{}

func (NoopPlugin) UpdateSample() Measurements { return Measurements{} }
func (NoopPlugin) GetAffinity() []int         { return nil }
