package reduce

import "github.com/bsc-dlb/talp-go/internal/util"

// Model selects which POP hybrid efficiency formula ToPopMetrics uses.
// Mirrors the talp_model enum (PAPI-less builds only ever see the hybrid
// variants; the pure-MPI model is kept as InferMPIModel below, used only
// for node-level metrics per the original's own comment).
type Model int

const (
	// ModelHybridV1 multiplies parallel efficiency out of MPI and OpenMP
	// efficiency, though the two can individually exceed 1.
	ModelHybridV1 Model = iota
	// ModelHybridV2 corrects v1 so that ParallelEfficiency != MPIEfficiency * OMPEfficiency.
	ModelHybridV2
)

// PopMetrics is the computed POP efficiency report for one region: the Go
// mirror of dlb_pop_metrics_t, holding both the input base metrics and the
// derived efficiency ratios.
type PopMetrics struct {
	Name string
	BaseMetrics

	ParallelEfficiency          float64
	MPIParallelEfficiency       float64
	MPICommunicationEfficiency  float64
	MPILoadBalance              float64
	MPILoadBalanceIn            float64
	MPILoadBalanceOut           float64
	OMPParallelEfficiency       float64
	OMPLoadBalance              float64
	OMPSchedulingEfficiency     float64
	OMPSerializationEfficiency  float64
	DeviceOffloadEfficiency     float64
	GPUParallelEfficiency       float64
	GPULoadBalance              float64
	GPUCommunicationEfficiency  float64
	GPUOrchestrationEfficiency  float64
}

// ToPopMetrics computes every POP efficiency ratio from base and assembles
// the full report, mirroring perf_metrics__base_to_pop_metrics. Every ratio
// is left zero when UsefulTime is zero, matching the original's guard
// against computing meaningless metrics for a region that never ran.
func ToPopMetrics(name string, base BaseMetrics, model Model) PopMetrics {
	pop := PopMetrics{Name: name, BaseMetrics: base}
	if base.UsefulTime <= 0 {
		return pop
	}

	switch model {
	case ModelHybridV2:
		computeHybridV2(&pop, base)
	default:
		computeHybridV1(&pop, base)
	}
	return pop
}

// computeHybridV1 mirrors perf_metrics__compute_hybrid_model_v1 (Ver. 1:
// metrics are individually multiplicative but some may exceed 1).
func computeHybridV1(pop *PopMetrics, b BaseMetrics) {
	sumActive, sumActiveNonOMP, sumActiveNonGPU := activeSums(b)

	mpiNormdApp := util.SafeDiv(float64(b.MPITime), float64(b.NumCPUs))
	nonMPINormdApp := float64(b.ElapsedTime) - mpiNormdApp
	maxNonMPINormdProc := float64(b.ElapsedTime) - b.MinMPINormdProc
	maxNonMPINormdNode := float64(b.ElapsedTime) - b.MinMPINormdNode
	sumDeviceTime := b.ElapsedTime * int64(b.NumGPUs)

	pop.ParallelEfficiency = util.SafeDiv(float64(b.UsefulTime), float64(sumActive))
	pop.MPIParallelEfficiency = util.SafeDiv(float64(b.UsefulTime), float64(b.UsefulTime+b.MPITime))
	pop.MPICommunicationEfficiency = util.SafeDiv(maxNonMPINormdProc, nonMPINormdApp+mpiNormdApp)
	pop.MPILoadBalance = util.SafeDiv(nonMPINormdApp, maxNonMPINormdProc)
	pop.MPILoadBalanceIn = util.SafeDiv(maxNonMPINormdNode, maxNonMPINormdProc)
	pop.MPILoadBalanceOut = util.SafeDiv(nonMPINormdApp, maxNonMPINormdNode)

	applyOMPEfficiencies(pop, b, sumActive, sumActiveNonOMP)

	pop.DeviceOffloadEfficiency = util.SafeDiv(float64(sumActiveNonGPU), float64(sumActive))
	applyGPUEfficiencies(pop, b, sumDeviceTime)
}

// computeHybridV2 mirrors perf_metrics__compute_hybrid_model_v2 (Ver. 2:
// ParallelEfficiency != MPIEfficiency * OMPEfficiency).
func computeHybridV2(pop *PopMetrics, b BaseMetrics) {
	sumActive, sumActiveNonOMP, sumActiveNonGPU := activeSums(b)
	sumOMPNotUseful := b.OMPLoadImbalanceTime + b.OMPSchedulingTime + b.OMPSerializationTime

	mpiNormdApp := util.SafeDiv(float64(b.MPITime), float64(b.NumCPUs))
	nonMPINormdApp := float64(b.ElapsedTime) - mpiNormdApp
	maxNonMPINormdProc := float64(b.ElapsedTime) - b.MinMPINormdProc
	maxNonMPINormdNode := float64(b.ElapsedTime) - b.MinMPINormdNode
	sumDeviceTime := b.ElapsedTime * int64(b.NumGPUs)

	pop.ParallelEfficiency = util.SafeDiv(float64(b.UsefulTime), float64(sumActive))
	pop.MPIParallelEfficiency = util.SafeDiv(nonMPINormdApp, float64(b.ElapsedTime))
	pop.MPICommunicationEfficiency = util.SafeDiv(maxNonMPINormdProc, float64(b.ElapsedTime))
	pop.MPILoadBalance = util.SafeDiv(nonMPINormdApp, maxNonMPINormdProc)
	pop.MPILoadBalanceIn = util.SafeDiv(maxNonMPINormdNode, maxNonMPINormdProc)
	pop.MPILoadBalanceOut = util.SafeDiv(nonMPINormdApp, maxNonMPINormdNode)

	applyOMPEfficiencies(pop, b, sumActive, sumActiveNonOMP)

	_ = sumActiveNonGPU
	pop.DeviceOffloadEfficiency = util.SafeDiv(float64(b.UsefulTime+sumOMPNotUseful),
		float64(b.UsefulTime+sumOMPNotUseful+b.GPURuntimeTime))
	applyGPUEfficiencies(pop, b, sumDeviceTime)
}

// activeSums computes the three running-CPU-time unions shared by both
// hybrid model versions: sum_active, sum_active_non_omp, sum_active_non_gpu.
func activeSums(b BaseMetrics) (sumActive, sumActiveNonOMP, sumActiveNonGPU int64) {
	sumActive = b.UsefulTime + b.MPITime + b.OMPLoadImbalanceTime +
		b.OMPSchedulingTime + b.OMPSerializationTime + b.GPURuntimeTime
	sumActiveNonOMP = b.UsefulTime + b.MPITime + b.GPURuntimeTime
	sumActiveNonGPU = sumActive - b.GPURuntimeTime
	return
}

func applyOMPEfficiencies(pop *PopMetrics, b BaseMetrics, sumActive, sumActiveNonOMP int64) {
	denom := sumActiveNonOMP + b.OMPSerializationTime
	pop.OMPParallelEfficiency = util.SafeDiv(float64(sumActiveNonOMP), float64(sumActive))
	pop.OMPLoadBalance = util.SafeDiv(float64(denom), float64(denom+b.OMPLoadImbalanceTime))
	pop.OMPSchedulingEfficiency = util.SafeDiv(float64(denom+b.OMPLoadImbalanceTime),
		float64(denom+b.OMPLoadImbalanceTime+b.OMPSchedulingTime))
	pop.OMPSerializationEfficiency = util.SafeDiv(float64(sumActiveNonOMP), float64(denom))
}

func applyGPUEfficiencies(pop *PopMetrics, b BaseMetrics, sumDeviceTime int64) {
	if sumDeviceTime == 0 {
		return
	}
	pop.GPUParallelEfficiency = util.SafeDiv(float64(b.GPUUsefulTime), float64(sumDeviceTime))
	pop.GPULoadBalance = util.SafeDiv(float64(b.GPUUsefulTime), float64(b.MaxGPUUsefulTime*int64(b.NumGPUs)))
	pop.GPUCommunicationEfficiency = util.SafeDiv(float64(b.MaxGPUUsefulTime), float64(b.MaxGPUActiveTime))
	pop.GPUOrchestrationEfficiency = util.SafeDiv(float64(b.MaxGPUActiveTime), float64(b.ElapsedTime))
}

// InferMPIModel computes the pure-MPI-model metrics used only for inferred
// node-level reporting, where per-process elapsed time is not directly
// available and must be derived from the node's combined useful+MPI time.
// Mirrors perf_metrics__infer_mpi_model.
func InferMPIModel(processesPerNode int, nodeSumUseful, nodeSumMPI, maxUsefulTime int64) PopMetrics {
	elapsedTime := (nodeSumUseful + nodeSumMPI) / int64(processesPerNode)
	pop := PopMetrics{BaseMetrics: BaseMetrics{ElapsedTime: elapsedTime}}
	if elapsedTime <= 0 {
		return pop
	}
	pop.ParallelEfficiency = util.SafeDiv(float64(nodeSumUseful), float64(nodeSumUseful+nodeSumMPI))
	pop.MPICommunicationEfficiency = util.SafeDiv(float64(maxUsefulTime), float64(elapsedTime))
	pop.MPILoadBalance = util.SafeDiv(util.SafeDiv(float64(nodeSumUseful), float64(processesPerNode)), float64(maxUsefulTime))
	return pop
}
