// Package cpusample estimates a process's average CPU count from the
// kernel's /proc accounting, for AvgCPUs as reported on a region (spec
// §3/§4.7's BaseMetrics.AvgCPUs). Grounded on
// pkg/system/proc/proc.go's ReadProcStat/ClockTicks (/proc/<pid>/stat
// parsing) and pkg/system/util.go's counter-delta/EMA helpers, adapted
// from process power-draw sampling to CPU-occupancy sampling for a
// monitoring region.
package cpusample

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ClockTicks returns the kernel's jiffies-per-second rate. Checked via
// CLK_TCK for testability, falling back to the near-universal Linux default
// of 100.
func ClockTicks() int {
	if v, _ := strconv.Atoi(os.Getenv("CLK_TCK")); v > 0 {
		return v
	}
	return 100
}

// readProcStat parses /proc/<pid>/stat and returns utime+stime in jiffies.
// The comm field (2nd, parenthesized) may itself contain spaces or
// parens, so everything up to the last ") " is skipped rather than relying
// on a fixed field count.
func readProcStat(pid int) (jiffies uint64, err error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, fmt.Errorf("cpusample: empty /proc/%d/stat", pid)
	}
	line := sc.Text()
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return 0, fmt.Errorf("cpusample: malformed /proc/%d/stat", pid)
	}
	fields := strings.Fields(line[i+2:])
	if len(fields) < 13 {
		return 0, fmt.Errorf("cpusample: short /proc/%d/stat", pid)
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, err
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, err
	}
	return utime + stime, nil
}

// deltaU64 returns now-prev, or zero if the counter wrapped (now < prev).
func deltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	return 0
}

// Sampler tracks one pid's last-seen jiffy count across successive calls
// to Sample, smoothing the instantaneous reading with an exponential
// moving average so a single noisy window doesn't swing AvgCPUs.
type Sampler struct {
	alpha   float64
	ticks   int
	prev    uint64
	haveSet bool
	ema     float64
	haveEMA bool
}

// NewSampler returns a Sampler with EMA smoothing factor alpha in [0,1];
// alpha closer to 1 favors the most recent sample.
func NewSampler(alpha float64) *Sampler {
	return &Sampler{alpha: alpha, ticks: ClockTicks()}
}

// Sample reads pid's current CPU-jiffy total and returns the average number
// of CPUs it consumed over the dtSec-second window since the previous
// call. The first call on a fresh Sampler has no prior reading to diff
// against, so it returns zero without error.
func (s *Sampler) Sample(pid int, dtSec float64) (avgCPUs float64, err error) {
	now, err := readProcStat(pid)
	if err != nil {
		return 0, fmt.Errorf("cpusample: read pid %d: %w", pid, err)
	}

	if !s.haveSet {
		s.prev, s.haveSet = now, true
		return 0, nil
	}

	delta := deltaU64(now, s.prev)
	s.prev = now

	instant := 0.0
	if dtSec > 1e-9 {
		instant = float64(delta) / float64(s.ticks) / dtSec
	}

	if !s.haveEMA {
		s.ema, s.haveEMA = instant, true
	} else {
		s.ema = s.alpha*instant + (1-s.alpha)*s.ema
	}
	return s.ema, nil
}
