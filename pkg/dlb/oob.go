// Out-of-band observer access: a process that never registers its own
// regions, only attaches read-only to the node-shared TALP registry to
// gather live metrics from its siblings. Mirrors DLB_TALP_Attach/Detach/
// GetNumCpus/GetPidList/GetTimes.
package dlb

import (
	"io"

	"github.com/bsc-dlb/talp-go/internal/errs"
	"github.com/bsc-dlb/talp-go/internal/reduce"
	"github.com/bsc-dlb/talp-go/internal/talpshm"
	"github.com/bsc-dlb/talp-go/internal/topology"
	"github.com/bsc-dlb/talp-go/pkg/types"
)

// Observer is an out-of-band handle: no engine, no regions of its own,
// just a read-only attachment to the shared TALP registry.
type Observer struct {
	shared *talpshm.Registry
}

// Attach opens (or joins) the TALP shared registry identified by key.
// Mirrors DLB_TALP_Attach.
func Attach(key string) (*Observer, error) {
	shared, err := talpshm.Init(key, 0)
	if err != nil {
		return nil, err
	}
	return &Observer{shared: shared}, nil
}

// Detach releases the observer's reference to the shared registry. An
// observer never registered a region of its own, so no pid's slots are
// reclaimed; this only decrements the segment's attachment count. Mirrors
// DLB_TALP_Detach.
func (o *Observer) Detach() error {
	return o.shared.Finalize(0)
}

// GetNumCPUs returns the number of CPUs visible on this node. Mirrors
// DLB_TALP_GetNumCpus.
func (o *Observer) GetNumCPUs() int {
	return int(topology.NumCPUs())
}

// GetPidList enumerates the pids currently registered in the shared
// registry, capped at maxLen. Mirrors DLB_TALP_GetPidList.
func (o *Observer) GetPidList(maxLen int) []int32 {
	return o.shared.GetPIDList(maxLen)
}

// GetTimes returns the mpi/useful time pair published by pid for region
// name. Mirrors DLB_TALP_GetTimes, generalized from the original's
// implicit MPI-region-only query to any registered region name.
func (o *Observer) GetTimes(pid int32, name string) (mpiTime, usefulTime int64, err error) {
	rec, ok := o.shared.GetRegion(pid, name)
	if !ok {
		return 0, 0, errs.NoEntry
	}
	return rec.MPITime, rec.UsefulTime, nil
}

// GetNodeTimes enumerates every sibling's published record for region
// name, sorted by pid. Mirrors get_node_times(name).
func (o *Observer) GetNodeTimes(name string, maxLen int) []talpshm.Record {
	return o.shared.GetRegionList(name, maxLen)
}

// QueryPopNodeMetrics reduces every sibling's currently published record
// for region name into one live, node-wide POP metrics snapshot, without
// any barrier synchronization: an observer reads whatever state siblings
// have published so far. Mirrors query_pop_node_metrics(name).
func (o *Observer) QueryPopNodeMetrics(name string, model reduce.Model, maxLen int) reduce.PopMetrics {
	records := o.shared.GetRegionList(name, maxLen)
	merged := reduce.Reduce(contributionsFromRecords(records))
	return reduce.ToPopMetrics(name, merged, model)
}

// PrintInfo writes a human-readable table of every slot currently
// registered in the shared segment, regardless of region name.
func (o *Observer) PrintInfo(w io.Writer) {
	o.shared.PrintInfo(w)
}

// SegmentSize returns the attached registry's entry-table footprint as a
// human-readable size (e.g. "40.00 KB").
func (o *Observer) SegmentSize() string {
	return types.Bytes(o.shared.SegmentBytes()).Humanized()
}
