// Package talpshm implements the TALP shared region registry: a versioned,
// fixed-capacity shared segment holding one slot per registered (pid,
// region-name) pair, so that sibling processes and out-of-band observers
// on the same node can read mpi_time/useful_time without coordinating with
// the producer. internal/shm supplies the segment host.
package talpshm

import (
	"fmt"
	"math"
	"sort"

	"github.com/bsc-dlb/talp-go/internal/errs"
	"github.com/bsc-dlb/talp-go/internal/shm"
	"github.com/bsc-dlb/talp-go/internal/topology"
)

const (
	// MaxNameLen mirrors DLB_MONITOR_NAME_MAX: region names are truncated,
	// never rejected, past this length.
	MaxNameLen = 128

	offName       = 0
	offPID        = offName + MaxNameLen
	offMPITime    = 136 // 8-byte aligned past pid
	offUsefulTime = offMPITime + 8
	offAvgCPUs    = offUsefulTime + 8
	entrySize     = 192 // rounded up to 3 cache lines

	shmKind               = "talp"
	segmentVersion        = 1
	defaultRegionsPerProc = 10
)

// Record is a point-in-time, lock-free snapshot of one registered region
// slot, returned by GetRegion/GetRegionList.
type Record struct {
	PID        int32
	RegionID   int32
	MPITime    int64
	UsefulTime int64
	AvgCPUs    float32
}

// Registry owns the process's attachment to the TALP shared segment.
type Registry struct {
	seg        *shm.Segment
	maxRegions int32
}

// Init opens or creates the TALP region segment, sized for
// system_size * regionsPerProc slots (DEFAULT_REGIONS_PER_PROC when zero).
func Init(key string, regionsPerProc int) (*Registry, error) {
	if regionsPerProc <= 0 {
		regionsPerProc = defaultRegionsPerProc
	}
	systemSize := int(topology.NumCPUs())
	if systemSize < 1 {
		systemSize = 1
	}
	maxRegions := int32(systemSize * regionsPerProc)
	size := int(maxRegions)*entrySize + shm.CacheLine

	seg, err := shm.Open(shm.Props{
		Size:    size,
		Name:    shmKind,
		Key:     key,
		Version: segmentVersion,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{seg: seg, maxRegions: maxRegions}, nil
}

func (r *Registry) slot(id int32) []byte {
	entries := r.seg.Entries()
	off := int(id) * entrySize
	return entries[off : off+entrySize]
}

func readName(entry []byte) string {
	end := 0
	for end < MaxNameLen && entry[offName+end] != 0 {
		end++
	}
	return string(entry[offName : offName+end])
}

func writeName(entry []byte, name string) {
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	for i := range entry[offName : offName+MaxNameLen] {
		entry[offName+i] = 0
	}
	copy(entry[offName:offName+MaxNameLen], name)
}

func readPID(entry []byte) int32     { return shm.LoadInt32(entry, offPID) }
func writePID(entry []byte, v int32) { shm.StoreInt32(entry, offPID, v) }

func readAvgCPUs(entry []byte) float32 {
	return math.Float32frombits(shm.LoadUint32(entry, offAvgCPUs))
}

func writeAvgCPUs(entry []byte, v float32) {
	shm.StoreUint32(entry, offAvgCPUs, math.Float32bits(v))
}

// Register scans the slot table for an existing (pid, name) match under the
// segment lock, or claims the first free slot. Returns the slot id and
// whether the region already existed (the original's DLB_NOUPDT case).
func (r *Registry) Register(pid int32, avgCPUs float32, name string) (slotID int32, existed bool, err error) {
	if err := r.seg.Lock(); err != nil {
		return 0, false, fmt.Errorf("talpshm: segment lock: %w", err)
	}
	defer r.seg.Unlock()

	freeSlot := int32(-1)
	for i := int32(0); i < r.maxRegions; i++ {
		entry := r.slot(i)
		p := readPID(entry)
		if freeSlot < 0 && p == 0 {
			freeSlot = i
		} else if p == pid && readName(entry) == name {
			return i, true, nil
		}
	}

	if freeSlot < 0 {
		return 0, false, errs.NoMemory
	}

	entry := r.slot(freeSlot)
	writeName(entry, name)
	writePID(entry, pid)
	shm.StoreInt64(entry, offMPITime, 0)
	shm.StoreInt64(entry, offUsefulTime, 0)
	writeAvgCPUs(entry, avgCPUs)
	return freeSlot, false, nil
}

// GetTimes reads mpi_time/useful_time with relaxed atomics, no lock (spec
// §4.3: getters/setters on an existing slot need no segment-wide
// coordination since each slot is owned by exactly one pid).
func (r *Registry) GetTimes(slotID int32) (mpiTime, usefulTime int64, err error) {
	if slotID < 0 || slotID >= r.maxRegions {
		return 0, 0, errs.NoMemory
	}
	entry := r.slot(slotID)
	if readPID(entry) == 0 {
		return 0, 0, errs.NoEntry
	}
	return shm.LoadInt64(entry, offMPITime), shm.LoadInt64(entry, offUsefulTime), nil
}

// SetTimes stores mpi_time/useful_time with relaxed atomics, no lock.
func (r *Registry) SetTimes(slotID int32, mpiTime, usefulTime int64) error {
	if slotID < 0 || slotID >= r.maxRegions {
		return errs.NoMemory
	}
	entry := r.slot(slotID)
	if readPID(entry) == 0 {
		return errs.NoEntry
	}
	shm.StoreInt64(entry, offMPITime, mpiTime)
	shm.StoreInt64(entry, offUsefulTime, usefulTime)
	return nil
}

// SetAvgCPUs updates the slot's average-CPUs field.
func (r *Registry) SetAvgCPUs(slotID int32, avgCPUs float32) error {
	if slotID < 0 || slotID >= r.maxRegions {
		return errs.NoMemory
	}
	entry := r.slot(slotID)
	if readPID(entry) == 0 {
		return errs.NoEntry
	}
	writeAvgCPUs(entry, avgCPUs)
	return nil
}

// GetPIDList enumerates the distinct pids that have registered a region,
// under the segment lock, capped at maxLen.
func (r *Registry) GetPIDList(maxLen int) []int32 {
	r.seg.Lock()
	defer r.seg.Unlock()

	seen := make(map[int32]bool)
	pids := make([]int32, 0, maxLen)
	for i := int32(0); i < r.maxRegions && len(pids) < maxLen; i++ {
		pid := readPID(r.slot(i))
		if pid != 0 && !seen[pid] {
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	return pids
}

// GetRegion looks up a registered region by (pid, name).
func (r *Registry) GetRegion(pid int32, name string) (Record, bool) {
	r.seg.Lock()
	defer r.seg.Unlock()

	for i := int32(0); i < r.maxRegions; i++ {
		entry := r.slot(i)
		if readPID(entry) == pid && readName(entry) == name {
			return Record{
				PID:        pid,
				RegionID:   i,
				MPITime:    shm.LoadInt64(entry, offMPITime),
				UsefulTime: shm.LoadInt64(entry, offUsefulTime),
				AvgCPUs:    readAvgCPUs(entry),
			}, true
		}
	}
	return Record{}, false
}

// GetRegionList enumerates every slot registered under the given name,
// sorted by pid, capped at maxLen.
func (r *Registry) GetRegionList(name string, maxLen int) []Record {
	r.seg.Lock()
	defer r.seg.Unlock()

	records := make([]Record, 0, maxLen)
	for i := int32(0); i < r.maxRegions && len(records) < maxLen; i++ {
		entry := r.slot(i)
		pid := readPID(entry)
		if pid != 0 && readName(entry) == name {
			records = append(records, Record{
				PID:        pid,
				RegionID:   i,
				MPITime:    shm.LoadInt64(entry, offMPITime),
				UsefulTime: shm.LoadInt64(entry, offUsefulTime),
				AvgCPUs:    readAvgCPUs(entry),
			})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
	return records
}

// Finalize removes every slot owned by pid, then releases the registry's
// reference to the segment. If no registered pids remain, the segment's
// entries are zeroed in full (mirroring cleanup_shmem's "if empty, reset
// everything").
func (r *Registry) Finalize(pid int32) error {
	if err := r.seg.Lock(); err != nil {
		return fmt.Errorf("talpshm: segment lock: %w", err)
	}
	empty := true
	for i := int32(0); i < r.maxRegions; i++ {
		entry := r.slot(i)
		if readPID(entry) == pid {
			for j := range entry {
				entry[j] = 0
			}
		} else if readPID(entry) != 0 {
			empty = false
		}
	}
	if empty {
		r.seg.ZeroAll()
	}
	r.seg.Unlock()

	return r.seg.Finalize(false)
}

// MaxRegions returns the fixed slot capacity of this segment.
func (r *Registry) MaxRegions() int32 { return r.maxRegions }

// SegmentBytes returns the shared segment's total entry-table size in
// bytes, for human-readable reporting of a node's TALP footprint.
func (r *Registry) SegmentBytes() uint32 { return r.seg.Capacity() }

// NumRegions returns the count of currently registered (non-free) slots.
func (r *Registry) NumRegions() int32 {
	r.seg.Lock()
	defer r.seg.Unlock()
	var n int32
	for i := int32(0); i < r.maxRegions; i++ {
		if readPID(r.slot(i)) != 0 {
			n++
		}
	}
	return n
}

// PrintInfo writes a human-readable table of every registered region.
func (r *Registry) PrintInfo(w interface{ Write([]byte) (int, error) }) {
	r.seg.Lock()
	defer r.seg.Unlock()
	for i := int32(0); i < r.maxRegions; i++ {
		entry := r.slot(i)
		pid := readPID(entry)
		if pid == 0 {
			continue
		}
		fmt.Fprintf(ioWriter{w}, "  | %d | %-32s | %d | %d |\n",
			pid, readName(entry), shm.LoadInt64(entry, offMPITime), shm.LoadInt64(entry, offUsefulTime))
	}
}

type ioWriter struct {
	w interface{ Write([]byte) (int, error) }
}

func (iw ioWriter) Write(p []byte) (int, error) { return iw.w.Write(p) }
