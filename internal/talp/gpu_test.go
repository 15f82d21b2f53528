package talp

import (
	"testing"

	"github.com/bsc-dlb/talp-go/internal/gpu"
	"github.com/stretchr/testify/require"
)

func TestGPUInitForcesUsefulOnlyWhenDisabled(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	caller := e.Sample(0)
	require.Equal(t, Disabled, caller.State())

	e.GPUInit(caller)
	require.True(t, e.Info.HaveGPU)
	require.Equal(t, Useful, caller.State())
}

func TestGPUInitLeavesNonDisabledStateAlone(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	caller := e.Sample(0)
	caller.state = NotUsefulMPI

	e.GPUInit(caller)
	require.Equal(t, NotUsefulMPI, caller.State())
}

func TestGPUIntoAndOutOfRuntimeAPITransitionsState(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	caller := e.Sample(0)
	caller.state = Useful

	e.GPUIntoRuntimeAPI(caller)
	require.Equal(t, NotUsefulGPU, caller.State())

	e.GPUOutOfRuntimeAPI(caller)
	require.Equal(t, Useful, caller.State())
	require.EqualValues(t, 1, caller.NumGPURuntimeCalls.LoadRlx())
}

func TestGPUUpdateSampleAccumulatesIntoGPUSample(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	e.GPUUpdateSample(gpu.Measurements{Useful: 10, Communication: 5, Inactive: 2})
	e.GPUUpdateSample(gpu.Measurements{Useful: 3, Communication: 1, Inactive: 1})

	require.EqualValues(t, 13, e.gpu.Useful)
	require.EqualValues(t, 6, e.gpu.Communication)
	require.EqualValues(t, 3, e.gpu.Inactive)
}

type fakeGPUPlugin struct {
	m gpu.Measurements
}

func (f fakeGPUPlugin) UpdateSample() gpu.Measurements { return f.m }
func (f fakeGPUPlugin) GetAffinity() []int             { return nil }

func TestGPUFinalizeDrainsPluginIntoGPUSample(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	e.GPUFinalize(fakeGPUPlugin{m: gpu.Measurements{Useful: 7, Communication: 2, Inactive: 1}})

	require.EqualValues(t, 7, e.gpu.Useful)
	require.EqualValues(t, 2, e.gpu.Communication)
	require.EqualValues(t, 1, e.gpu.Inactive)
}

func TestGPUFinalizeNoopWithNilPlugin(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	e.GPUFinalize(nil)
	require.Zero(t, e.gpu.Useful)
}

type resettableGPUPlugin struct {
	fakeGPUPlugin
	lastReset uint64
}

func (r *resettableGPUPlugin) Reset(ts uint64) { r.lastReset = ts }

func TestGPUResetForwardsToResettablePlugin(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	plugin := &resettableGPUPlugin{}

	e.GPUReset(plugin, 42)
	require.EqualValues(t, 42, plugin.lastReset)
}

func TestGPUResetNoopWhenPluginNotResettable(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	require.NotPanics(t, func() { e.GPUReset(fakeGPUPlugin{}, 42) })
}
