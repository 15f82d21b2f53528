package reduce

import (
	"errors"
	"testing"

	"github.com/bsc-dlb/talp-go/internal/region"
	"github.com/stretchr/testify/require"
)

func TestMergeNodeAbsorbsUsedNode(t *testing.T) {
	a := NodeUsage{Used: true, NumCPUs: 4, MPITime: 100}
	b := NodeUsage{Used: true, NumCPUs: 8, MPITime: 50}
	got := MergeNode(a, b)
	require.Equal(t, NodeUsage{Used: true, NumCPUs: 12, MPITime: 150}, got)
}

func TestMergeNodeIgnoresUnusedContribution(t *testing.T) {
	a := NodeUsage{Used: true, NumCPUs: 4, MPITime: 100}
	b := NodeUsage{}
	got := MergeNode(a, b)
	require.Equal(t, a, got)
}

func TestFromMonitorBuildsPerProcessContribution(t *testing.T) {
	m := &region.Monitor{
		NumCPUs:      4,
		MPITime:      40,
		UsefulTime:   100,
		ElapsedTime:  140,
		GPUUseful:    10,
		GPUCommunication: 5,
	}
	node := NodeUsage{Used: true, NumCPUs: 8, MPITime: 60}

	got := FromMonitor(m, node, true, true, 2)
	require.InDelta(t, 10.0, got.MinMPINormdProc, 0.0001) // 40/4
	require.InDelta(t, 7.5, got.MinMPINormdNode, 0.0001)   // 60/8
	require.Equal(t, 1, got.NumNodes)
	require.Equal(t, 1, got.NumGPUs)
	require.EqualValues(t, 15, got.MaxGPUActiveTime)
}

func TestFromMonitorSkipsNodeNormdWhenNotAppLeader(t *testing.T) {
	m := &region.Monitor{NumCPUs: 4, MPITime: 40}
	node := NodeUsage{Used: true, NumCPUs: 8, MPITime: 60}
	got := FromMonitor(m, node, true, false, 2)
	require.Zero(t, got.MinMPINormdNode)
}

func TestMergeSumsAndMaxesCorrectly(t *testing.T) {
	a := BaseMetrics{NumCPUs: 4, ElapsedTime: 100, MinMPINormdProc: 5, MaxGPUUsefulTime: 9}
	b := BaseMetrics{NumCPUs: 8, ElapsedTime: 200, MinMPINormdProc: 2, MaxGPUUsefulTime: 3}
	got := Merge(a, b)
	require.Equal(t, 12, got.NumCPUs)
	require.EqualValues(t, 200, got.ElapsedTime)
	require.InDelta(t, 2, got.MinMPINormdProc, 0.0001)
	require.EqualValues(t, 9, got.MaxGPUUsefulTime)
}

func TestMergeMinNonZeroIgnoresZeroOperand(t *testing.T) {
	a := BaseMetrics{MinMPINormdProc: 0}
	b := BaseMetrics{MinMPINormdProc: 3}
	require.InDelta(t, 3, Merge(a, b).MinMPINormdProc, 0.0001)
}

func TestReduceFoldsAcrossAllContributions(t *testing.T) {
	contributions := []BaseMetrics{
		{NumCPUs: 2, UsefulTime: 10},
		{NumCPUs: 3, UsefulTime: 20},
		{NumCPUs: 1, UsefulTime: 5},
	}
	got := Reduce(contributions)
	require.Equal(t, 6, got.NumCPUs)
	require.EqualValues(t, 35, got.UsefulTime)
}

func TestReduceResultsCombinesErrorsWithoutDroppingSuccesses(t *testing.T) {
	errA := errors.New("rank 2: no shared memory")
	results := []ProcessResult{
		{Metrics: BaseMetrics{UsefulTime: 10}},
		{Err: errA},
		{Metrics: BaseMetrics{UsefulTime: 20}},
	}
	metrics, err := ReduceResults(results)
	require.EqualValues(t, 30, metrics.UsefulTime)
	require.ErrorIs(t, err, errA)
}

func TestToPopMetricsZeroWhenNoUsefulTime(t *testing.T) {
	pop := ToPopMetrics("r", BaseMetrics{}, ModelHybridV1)
	require.Zero(t, pop.ParallelEfficiency)
}

func TestToPopMetricsHybridV1ComputesParallelEfficiency(t *testing.T) {
	base := BaseMetrics{
		NumCPUs:         4,
		ElapsedTime:     1000,
		UsefulTime:      700,
		MPITime:         200,
		MinMPINormdProc: 50,
		MinMPINormdNode: 50,
	}
	pop := ToPopMetrics("r", base, ModelHybridV1)
	// sum_active = 700+200 = 900 (no OMP/GPU time)
	require.InDelta(t, 700.0/900.0, pop.ParallelEfficiency, 0.0001)
	require.InDelta(t, 700.0/900.0, pop.MPIParallelEfficiency, 0.0001)
}

func TestToPopMetricsHybridV2DiffersFromV1OnMPIEfficiency(t *testing.T) {
	base := BaseMetrics{
		NumCPUs:         4,
		ElapsedTime:     1000,
		UsefulTime:      700,
		MPITime:         200,
		MinMPINormdProc: 50,
		MinMPINormdNode: 50,
	}
	v1 := ToPopMetrics("r", base, ModelHybridV1)
	v2 := ToPopMetrics("r", base, ModelHybridV2)
	require.NotEqual(t, v1.MPIParallelEfficiency, v2.MPIParallelEfficiency)
}

func TestToPopMetricsGPUEfficienciesZeroWithoutDevices(t *testing.T) {
	base := BaseMetrics{NumCPUs: 4, ElapsedTime: 1000, UsefulTime: 700, NumGPUs: 0}
	pop := ToPopMetrics("r", base, ModelHybridV1)
	require.Zero(t, pop.GPUParallelEfficiency)
}

func TestInferMPIModelComputesElapsedFromNodeSums(t *testing.T) {
	pop := InferMPIModel(2, 600, 200, 350)
	require.EqualValues(t, 400, pop.ElapsedTime) // (600+200)/2
	require.InDelta(t, 600.0/800.0, pop.ParallelEfficiency, 0.0001)
}

func TestInferMPIModelZeroWhenNoElapsedTime(t *testing.T) {
	pop := InferMPIModel(1, 0, 0, 0)
	require.Zero(t, pop.ParallelEfficiency)
}
