package events

import "github.com/bsc-dlb/talp-go/internal/gpu"

// GPUInit marks the engine as GPU-capable and forces slot's sample useful
// if it was disabled. Mirrors talp_gpu_init.
func (s *Source) GPUInit(slot int) {
	s.Engine.GPUInit(s.Engine.Sample(slot))
}

// GPUFinalize drains plugin's measurement window into the engine's GPU
// sample. Mirrors talp_gpu_finalize, called once per polling interval or
// at process shutdown.
func (s *Source) GPUFinalize(plugin gpu.Plugin) {
	s.Engine.GPUFinalize(plugin)
}

// GPUReset advances plugin's safe-timestamp watermark to ts, discarding
// any buffered activity from before the reset point. Call this when the
// underlying device or stream resets.
func (s *Source) GPUReset(plugin gpu.Plugin, ts uint64) {
	s.Engine.GPUReset(plugin, ts)
}

// GPUIntoRuntimeAPI marks slot not-useful-gpu on entry to a GPU runtime
// call (e.g. a synchronizing API function). Mirrors
// talp_gpu_into_runtime_api.
func (s *Source) GPUIntoRuntimeAPI(slot int) {
	s.Engine.GPUIntoRuntimeAPI(s.Engine.Sample(slot))
}

// GPUOutOfRuntimeAPI records the completed runtime call and marks slot
// useful again. Mirrors talp_gpu_out_of_runtime_api.
func (s *Source) GPUOutOfRuntimeAPI(slot int) {
	s.Engine.GPUOutOfRuntimeAPI(s.Engine.Sample(slot))
}
