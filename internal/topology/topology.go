// Package topology answers "how many CPUs does this process actually have"
// and "is this pid still alive", the two small pieces of node/process
// topology the profiler core needs. A region's "average CPUs" attribute
// and the reducer's num_cpus_in_node are both more accurate when they
// account for a cgroup v2 cpu.max quota instead of assuming the whole host
// is available, which is exactly what a node-shared HPC job frequently
// isn't.
package topology

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// NumCPUs returns the number of CPUs available to this process: the
// cgroup v2 cpu.max quota/period ratio when the unified hierarchy is
// mounted and a quota is set, otherwise runtime.NumCPU().
func NumCPUs() float64 {
	if n, ok := cgroupV2Quota(); ok {
		return n
	}
	return float64(runtime.NumCPU())
}

// ProcessExists reports whether pid is currently alive, by checking for
// /proc/<pid>. Used by the shared-segment cleanup scan to decide whether an
// entry's owner has died and its resources can be reclaimed.
func ProcessExists(pid int) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// cgroupV2Quota parses /sys/fs/cgroup/cpu.max ("<quota> <period>" in
// microseconds, or "max <period>" for no limit) and returns quota/period.
func cgroupV2Quota() (float64, bool) {
	const path = "/sys/fs/cgroup/cpu.max"
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, false
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 2 || fields[0] == "max" {
		return 0, false
	}
	quota, err1 := strconv.ParseFloat(fields[0], 64)
	period, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil || period <= 0 {
		return 0, false
	}
	return quota / period, true
}
