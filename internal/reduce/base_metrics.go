// Package reduce implements the POP base-metrics reduction and efficiency
// formulas as pure functions over plain structs: no MPI type or transport
// crosses this boundary, only the arithmetic an MPI collaborator would
// otherwise drive.
package reduce

import "github.com/bsc-dlb/talp-go/internal/region"

// NodeUsage is the per-node partial used to compute MinMPINormdNode: the
// node-level analogue of perf_metrics.c's node_reduction_t, reduced across
// every process sharing a node before it feeds into a process's BaseMetrics.
type NodeUsage struct {
	Used    bool
	NumCPUs int
	MPITime int64
}

// MergeNode combines two NodeUsage values the way mpi_node_reduction_fn
// does: a used node absorbs its CPU count and MPI time into the result,
// an unused one contributes nothing.
func MergeNode(a, b NodeUsage) NodeUsage {
	out := a
	if b.Used {
		out.Used = true
		out.NumCPUs += b.NumCPUs
		out.MPITime += b.MPITime
	}
	return out
}

// ReduceNode folds MergeNode across every process-local contribution
// sharing one node.
func ReduceNode(contributions []NodeUsage) NodeUsage {
	var out NodeUsage
	for _, c := range contributions {
		out = MergeNode(out, c)
	}
	return out
}

// BaseMetrics is one application's aggregated TALP region data: the Go
// mirror of pop_base_metrics_t, built by reducing one BaseMetrics value per
// MPI rank (or, for a single-process run, used directly). All the monoid
// fields below (the ones Merge sums, maxes, or min-non-zeroes) follow
// mpi_reduction_fn field-by-field.
type BaseMetrics struct {
	// Resources
	NumCPUs    int
	NumMPIRanks int
	NumNodes   int
	AvgCPUs    float64
	NumGPUs    int

	// Hardware counters (always zero: PAPI is out of scope)
	Cycles       float64
	Instructions float64

	// Statistics
	NumMeasurements    int64
	NumMPICalls        int64
	NumOMPParallels    int64
	NumOMPTasks        int64
	NumGPURuntimeCalls int64

	// Host times
	ElapsedTime          int64
	UsefulTime           int64
	MPITime              int64
	OMPLoadImbalanceTime int64
	OMPSchedulingTime    int64
	OMPSerializationTime int64
	GPURuntimeTime       int64

	// Host normalized times
	MinMPINormdProc float64
	MinMPINormdNode float64

	// Device times
	GPUUsefulTime        int64
	GPUCommunicationTime int64
	GPUInactiveTime      int64

	// Device max times
	MaxGPUUsefulTime int64
	MaxGPUActiveTime int64
}

// FromMonitor builds the per-process contribution sent into the app
// reduction (app_reduction_send), given the node-wide usage this process's
// node already reduced to, whether this process is its node's and the
// application's first-seen rank (the original's _process_id == 0 checks,
// here made explicit caller-supplied booleans instead of implicit globals),
// and the MPI world size.
func FromMonitor(m *region.Monitor, node NodeUsage, isNodeLeader, isAppLeader bool, numMPIRanks int) BaseMetrics {
	var minMPINormdProc float64
	if m.NumCPUs != 0 {
		minMPINormdProc = float64(m.MPITime) / float64(m.NumCPUs)
	}

	var minMPINormdNode float64
	if isAppLeader && node.NumCPUs != 0 {
		minMPINormdNode = float64(node.MPITime) / float64(node.NumCPUs)
	}

	numNodes := 0
	if isNodeLeader && node.Used {
		numNodes = 1
	}

	haveGPUs := m.GPUUsefulTime+m.GPUCommunicationTime > 0
	numGPUs := 0
	if haveGPUs {
		numGPUs = 1
	}

	return BaseMetrics{
		NumCPUs:              m.NumCPUs,
		NumMPIRanks:           numMPIRanks,
		NumNodes:              numNodes,
		AvgCPUs:               m.AvgCPUs,
		NumGPUs:               numGPUs,
		NumMeasurements:       m.NumMeasurements,
		NumMPICalls:           m.NumMPICalls,
		NumOMPParallels:       m.NumOMPParallels,
		NumOMPTasks:           m.NumOMPTasks,
		NumGPURuntimeCalls:    m.NumGPURuntimeCalls,
		ElapsedTime:           m.ElapsedTime,
		UsefulTime:            m.UsefulTime,
		MPITime:               m.MPITime,
		OMPLoadImbalanceTime:  m.OMPLoadImbalance,
		OMPSchedulingTime:     m.OMPScheduling,
		OMPSerializationTime:  m.OMPSerialization,
		GPURuntimeTime:        m.GPURuntime,
		MinMPINormdProc:       minMPINormdProc,
		MinMPINormdNode:       minMPINormdNode,
		GPUUsefulTime:         m.GPUUseful,
		GPUCommunicationTime:  m.GPUCommunication,
		GPUInactiveTime:       m.GPUInactive,
		MaxGPUUsefulTime:      m.GPUUseful,
		MaxGPUActiveTime:      m.GPUUseful + m.GPUCommunication,
	}
}

func minNonZero(a, b float64) float64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Merge pairwise-combines two BaseMetrics values exactly as mpi_reduction_fn
// does: most fields sum, elapsed/max-GPU fields take the max, and the
// normalized-MPI-time fields take the minimum of the non-zero operands.
// Folding Merge across every rank's BaseMetrics (in any order, since every
// operation here is commutative and associative) reproduces the original's
// MPI_Reduce/MPI_Allreduce result without any MPI call.
func Merge(a, b BaseMetrics) BaseMetrics {
	return BaseMetrics{
		NumCPUs:              a.NumCPUs + b.NumCPUs,
		NumMPIRanks:           a.NumMPIRanks, // constant across ranks, not reduced
		NumNodes:              a.NumNodes + b.NumNodes,
		AvgCPUs:               a.AvgCPUs + b.AvgCPUs,
		NumGPUs:               a.NumGPUs + b.NumGPUs,
		Cycles:                a.Cycles + b.Cycles,
		Instructions:          a.Instructions + b.Instructions,
		NumMeasurements:       a.NumMeasurements + b.NumMeasurements,
		NumMPICalls:           a.NumMPICalls + b.NumMPICalls,
		NumOMPParallels:       a.NumOMPParallels + b.NumOMPParallels,
		NumOMPTasks:           a.NumOMPTasks + b.NumOMPTasks,
		NumGPURuntimeCalls:    a.NumGPURuntimeCalls + b.NumGPURuntimeCalls,
		ElapsedTime:           maxInt64(a.ElapsedTime, b.ElapsedTime),
		UsefulTime:            a.UsefulTime + b.UsefulTime,
		MPITime:               a.MPITime + b.MPITime,
		OMPLoadImbalanceTime:  a.OMPLoadImbalanceTime + b.OMPLoadImbalanceTime,
		OMPSchedulingTime:     a.OMPSchedulingTime + b.OMPSchedulingTime,
		OMPSerializationTime:  a.OMPSerializationTime + b.OMPSerializationTime,
		GPURuntimeTime:        a.GPURuntimeTime + b.GPURuntimeTime,
		MinMPINormdProc:       minNonZero(a.MinMPINormdProc, b.MinMPINormdProc),
		MinMPINormdNode:       minNonZero(a.MinMPINormdNode, b.MinMPINormdNode),
		GPUUsefulTime:         a.GPUUsefulTime + b.GPUUsefulTime,
		GPUCommunicationTime:  a.GPUCommunicationTime + b.GPUCommunicationTime,
		GPUInactiveTime:       a.GPUInactiveTime + b.GPUInactiveTime,
		MaxGPUUsefulTime:      maxInt64(a.MaxGPUUsefulTime, b.MaxGPUUsefulTime),
		MaxGPUActiveTime:      maxInt64(a.MaxGPUActiveTime, b.MaxGPUActiveTime),
	}
}

// Reduce folds Merge across every rank's contribution. A single-element or
// empty slice is handled directly so a non-MPI run can call it unchanged.
func Reduce(contributions []BaseMetrics) BaseMetrics {
	if len(contributions) == 0 {
		return BaseMetrics{}
	}
	out := contributions[0]
	for _, c := range contributions[1:] {
		out = Merge(out, c)
	}
	return out
}
