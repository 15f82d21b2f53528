package events

import (
	"testing"

	"github.com/bsc-dlb/talp-go/internal/gpu"
	"github.com/bsc-dlb/talp-go/internal/region"
	"github.com/bsc-dlb/talp-go/internal/talp"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, workers int) *Source {
	t.Helper()
	store := region.NewStore("all")
	engine := talp.NewEngine(talp.Info{}, store, nil, workers)
	return NewSource(engine, store)
}

func TestMPIInitStartsGlobalRegion(t *testing.T) {
	s := newTestSource(t, 1)
	require.NoError(t, s.MPIInit(0))
	require.True(t, s.Regions.IsOpen(s.Regions.Global()))
	require.Equal(t, talp.Useful, s.Engine.Sample(0).State())
}

func TestMPIInitIgnoredForObserverSlot(t *testing.T) {
	s := newTestSource(t, 1)
	s.MarkObserver(0)
	require.NoError(t, s.MPIInit(0))
	require.False(t, s.Regions.IsOpen(s.Regions.Global()))
}

func TestIntoAndOutOfSyncCallTransitionObserverIgnored(t *testing.T) {
	s := newTestSource(t, 1)
	s.MarkObserver(0)
	s.IntoSyncCall(0, false)
	require.Equal(t, talp.Disabled, s.Engine.Sample(0).State())
}

func TestMPIFullLifecycleLeavesGlobalRegionClosed(t *testing.T) {
	s := newTestSource(t, 1)
	require.NoError(t, s.MPIInit(0))
	s.IntoSyncCall(0, false)
	s.OutOfSyncCall(0, false)
	require.NoError(t, s.MPIFinalize(0))
	require.False(t, s.Regions.IsOpen(s.Regions.Global()))
}

func TestOpenMPParallelLifecycleFlushesIntoOpenRegion(t *testing.T) {
	s := newTestSource(t, 2)
	m, err := s.Regions.Register("loop")
	require.NoError(t, err)
	require.NoError(t, s.Engine.StartRegion(m, s.Engine.Sample(0)))

	pr := s.ParallelBegin(0, 1, 2)
	s.IntoParallelFunction(pr, 0, 0)
	s.IntoParallelFunction(pr, 1, 1)
	s.OutofParallelFunction(1)
	s.ParallelEnd(pr, 0)

	require.Equal(t, talp.Useful, s.Engine.Sample(0).State())
}

func TestTaskLifecycleTransitionsStates(t *testing.T) {
	s := newTestSource(t, 1)
	s.Engine.Sample(0).SetState(talp.Useful)

	s.TaskCreate(0)
	require.EqualValues(t, 1, s.Engine.Sample(0).NumOMPTasks.LoadRlx())

	s.TaskComplete(0)
	require.Equal(t, talp.NotUsefulOMPIn, s.Engine.Sample(0).State())

	s.TaskSwitch(0)
	require.Equal(t, talp.Useful, s.Engine.Sample(0).State())
}

func TestIntoAndOutofParallelSyncRoundTrip(t *testing.T) {
	s := newTestSource(t, 1)
	s.Engine.Sample(0).SetState(talp.Useful)

	s.IntoParallelSync(0)
	require.Equal(t, talp.NotUsefulOMPIn, s.Engine.Sample(0).State())

	s.OutofParallelSync(0)
	require.Equal(t, talp.Useful, s.Engine.Sample(0).State())
}

type fakePlugin struct{ m gpu.Measurements }

func (f fakePlugin) UpdateSample() gpu.Measurements { return f.m }
func (f fakePlugin) GetAffinity() []int             { return nil }

func TestGPULifecycleDrainsPluginAndTransitionsStates(t *testing.T) {
	s := newTestSource(t, 1)
	s.GPUInit(0)
	require.Equal(t, talp.Useful, s.Engine.Sample(0).State())

	s.GPUIntoRuntimeAPI(0)
	require.Equal(t, talp.NotUsefulGPU, s.Engine.Sample(0).State())

	s.GPUOutOfRuntimeAPI(0)
	require.Equal(t, talp.Useful, s.Engine.Sample(0).State())

	s.GPUFinalize(fakePlugin{m: gpu.Measurements{Useful: 10}})
	require.Equal(t, int64(10), s.Engine.GPU().Useful)
}
