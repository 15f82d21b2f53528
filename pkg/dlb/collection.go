package dlb

import (
	"fmt"

	"github.com/bsc-dlb/talp-go/internal/barrier"
	"github.com/bsc-dlb/talp-go/internal/reduce"
	"github.com/bsc-dlb/talp-go/internal/talpshm"
)

// CollectPopMetrics reduces h's own contribution together with every other
// rank's already-gathered contribution into one application-wide POP
// metrics record. Mirrors perf_metrics__reduce_monitor_into_base_metrics
// followed by the app-wide MPI_Allreduce; the all-to-all gather itself is
// the MPI collaborator's job and is not done in this package, so peers is
// supplied already collected.
func (d *DLB) CollectPopMetrics(h Handle, peers []reduce.BaseMetrics, node reduce.NodeUsage, isNodeLeader, isAppLeader bool, numRanks int, model reduce.Model) reduce.PopMetrics {
	mine := reduce.FromMonitor(h.monitor, node, isNodeLeader, isAppLeader, numRanks)
	merged := reduce.Reduce(append([]reduce.BaseMetrics{mine}, peers...))
	return reduce.ToPopMetrics(h.monitor.Name, merged, model)
}

// CollectPopNodeMetrics blocks on the node barrier until every sibling
// process sharing this node has reached the same point, then reduces every
// sibling's currently published region times (read from the shared TALP
// registry) into one node-wide POP metrics record. Requires the engine's
// ExternalProfiler flag so siblings actually publish into the registry;
// requires d's barrier registry and shared registry to both be set.
func (d *DLB) CollectPopNodeMetrics(h Handle, barrierHandle barrier.Handle, model reduce.Model) (reduce.PopMetrics, error) {
	if d.barriers == nil || d.shared == nil {
		return reduce.PopMetrics{}, fmt.Errorf("dlb: node collection requires both a barrier and a shared registry")
	}
	if err := d.barriers.Barrier(barrierHandle, nil); err != nil {
		return reduce.PopMetrics{}, fmt.Errorf("dlb: node barrier: %w", err)
	}

	records := d.shared.GetRegionList(h.Name(), int(d.shared.MaxRegions()))
	merged := reduce.Reduce(contributionsFromRecords(records))
	return reduce.ToPopMetrics(h.Name(), merged, model), nil
}

func contributionsFromRecords(records []talpshm.Record) []reduce.BaseMetrics {
	out := make([]reduce.BaseMetrics, len(records))
	for i, r := range records {
		out[i] = reduce.BaseMetrics{
			AvgCPUs:    float64(r.AvgCPUs),
			MPITime:    r.MPITime,
			UsefulTime: r.UsefulTime,
		}
	}
	return out
}
