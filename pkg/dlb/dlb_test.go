//go:build linux

package dlb

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/bsc-dlb/talp-go/internal/barrier"
	"github.com/bsc-dlb/talp-go/internal/reduce"
	"github.com/bsc-dlb/talp-go/internal/region"
	"github.com/bsc-dlb/talp-go/internal/talp"
	"github.com/bsc-dlb/talp-go/internal/talpshm"
	"github.com/stretchr/testify/require"
)

func newTestDLB(t *testing.T) *DLB {
	t.Helper()
	store := region.NewStore("all")
	engine := talp.NewEngine(talp.Info{}, store, nil, 1)
	return New(1234, engine, store, nil, nil)
}

func TestRegisterAndStartStopRegionLifecycle(t *testing.T) {
	d := newTestDLB(t)
	h, err := d.RegisterRegion("loop")
	require.NoError(t, err)

	require.NoError(t, d.StartRegion(h, 0))
	require.NoError(t, d.StopRegion(h, 0))
}

func TestGlobalRegionIsAlwaysPresent(t *testing.T) {
	d := newTestDLB(t)
	h := d.GlobalRegion()
	require.Equal(t, region.GlobalName, h.Name())
}

func TestLastOpenRegionTracksInnermostOpen(t *testing.T) {
	d := newTestDLB(t)
	outer, _ := d.RegisterRegion("outer")
	inner, _ := d.RegisterRegion("inner")
	require.NoError(t, d.StartRegion(outer, 0))
	require.NoError(t, d.StartRegion(inner, 0))

	last, ok := d.LastOpenRegion()
	require.True(t, ok)
	require.Equal(t, "inner", last.Name())
}

func TestStopLastOpenRegionClosesInnermost(t *testing.T) {
	d := newTestDLB(t)
	outer, _ := d.RegisterRegion("outer")
	inner, _ := d.RegisterRegion("inner")
	require.NoError(t, d.StartRegion(outer, 0))
	require.NoError(t, d.StartRegion(inner, 0))

	closed, err := d.StopLastOpenRegion(0)
	require.NoError(t, err)
	require.Equal(t, "inner", closed.Name())
}

func TestResetRegionImplicitlyStopsAndClears(t *testing.T) {
	d := newTestDLB(t)
	h, _ := d.RegisterRegion("loop")
	require.NoError(t, d.StartRegion(h, 0))

	d.ResetRegion(h, 0)
	_, ok := d.LastOpenRegion()
	require.False(t, ok)
}

func TestReportRegionWritesTXTSummary(t *testing.T) {
	d := newTestDLB(t)
	h, _ := d.RegisterRegion("loop")
	require.NoError(t, d.StartRegion(h, 0))
	require.NoError(t, d.StopRegion(h, 0))

	var buf bytes.Buffer
	require.NoError(t, d.ReportRegion(&buf, h, reduce.ModelHybridV2))
	require.Contains(t, buf.String(), "loop")
}

func TestCollectPopMetricsMergesPeerContributions(t *testing.T) {
	d := newTestDLB(t)
	h, _ := d.RegisterRegion("loop")
	require.NoError(t, d.StartRegion(h, 0))
	require.NoError(t, d.StopRegion(h, 0))

	peer := reduce.BaseMetrics{NumCPUs: 2, UsefulTime: 500}
	pop := d.CollectPopMetrics(h, []reduce.BaseMetrics{peer}, reduce.NodeUsage{}, false, false, 2, reduce.ModelHybridV2)
	require.GreaterOrEqual(t, pop.NumCPUs, 2)
}

func testObserverKey(t *testing.T) string {
	return fmt.Sprintf("talp-go-dlb-oob-test-%s", t.Name())
}

func TestAttachDetachObserverRoundTrip(t *testing.T) {
	key := testObserverKey(t)
	o, err := Attach(key)
	require.NoError(t, err)
	require.NoError(t, o.Detach())
}

func TestObserverGetTimesReflectsPublishedRecord(t *testing.T) {
	key := testObserverKey(t)
	o, err := Attach(key)
	require.NoError(t, err)
	defer o.Detach()

	slotID, _, err := o.shared.Register(99, 1.0, "region-a")
	require.NoError(t, err)
	require.NoError(t, o.shared.SetTimes(slotID, 42, 84))

	mpi, useful, err := o.GetTimes(99, "region-a")
	require.NoError(t, err)
	require.Equal(t, int64(42), mpi)
	require.Equal(t, int64(84), useful)
}

func TestObserverSegmentSizeIsHumanReadable(t *testing.T) {
	key := testObserverKey(t)
	o, err := Attach(key)
	require.NoError(t, err)
	defer o.Detach()

	require.NotEmpty(t, o.SegmentSize())
}

func TestObserverGetTimesMissingRegionIsNoEntry(t *testing.T) {
	key := testObserverKey(t)
	o, err := Attach(key)
	require.NoError(t, err)
	defer o.Detach()

	_, _, err = o.GetTimes(1, "nonexistent")
	require.Error(t, err)
}

func TestCollectPopNodeMetricsWaitsOnBarrierThenReducesSiblingRecords(t *testing.T) {
	key := fmt.Sprintf("talp-go-dlb-node-test-%s", t.Name())

	barriers, err := barrier.Init(key, 1)
	require.NoError(t, err)
	defer barriers.Finalize()
	bh, err := barriers.Register("node", false)
	require.NoError(t, err)

	shared, err := talpshm.Init(key, 2)
	require.NoError(t, err)
	defer shared.Finalize(1111)

	slotID, _, err := shared.Register(1111, 1.0, "loop")
	require.NoError(t, err)
	require.NoError(t, shared.SetTimes(slotID, 10, 990))

	store := region.NewStore("all")
	engine := talp.NewEngine(talp.Info{ExternalProfiler: true}, store, shared, 1)
	d := New(1111, engine, store, shared, barriers)
	h, err := d.RegisterRegion("loop")
	require.NoError(t, err)

	pop, err := d.CollectPopNodeMetrics(h, bh, reduce.ModelHybridV2)
	require.NoError(t, err)
	require.Equal(t, int64(990), pop.UsefulTime)
	require.Equal(t, int64(10), pop.MPITime)
}

func TestCollectPopNodeMetricsRequiresBothRegistries(t *testing.T) {
	d := newTestDLB(t)
	h := d.GlobalRegion()
	_, err := d.CollectPopNodeMetrics(h, barrier.Handle{}, reduce.ModelHybridV2)
	require.Error(t, err)
}

func TestSampleAvgCPUsFirstCallEstablishesBaseline(t *testing.T) {
	d := newTestDLB(t)
	h, _ := d.RegisterRegion("loop")

	avg, err := d.SampleAvgCPUs(h, os.Getpid(), 1.0)
	require.NoError(t, err)
	require.Zero(t, avg)
}

func TestSampleAvgCPUsSecondCallUpdatesMonitor(t *testing.T) {
	d := newTestDLB(t)
	h, _ := d.RegisterRegion("loop")

	_, err := d.SampleAvgCPUs(h, os.Getpid(), 1.0)
	require.NoError(t, err)
	_, err = d.SampleAvgCPUs(h, os.Getpid(), 1.0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, h.monitor.AvgCPUs, 0.0)
}
