package dlb

import "github.com/bsc-dlb/talp-go/internal/cpusample"

// SampleAvgCPUs reads pid's current CPU usage from /proc and stores the
// EMA-smoothed average CPU count onto h, for BaseMetrics.AvgCPUs. Call it
// periodically (e.g. once per sampling tick of an external driver loop);
// the first call for a given region name only establishes the baseline and
// reports zero. Mirrors the original's PAPI-free path of updating a monitor's
// avg_cpus from external OS sampling rather than hardware counters.
func (d *DLB) SampleAvgCPUs(h Handle, pid int, dtSec float64) (float64, error) {
	if d.cpu == nil {
		d.cpu = make(map[string]*cpusample.Sampler)
	}
	s, ok := d.cpu[h.monitor.Name]
	if !ok {
		s = cpusample.NewSampler(0.5)
		d.cpu[h.monitor.Name] = s
	}

	avg, err := s.Sample(pid, dtSec)
	if err != nil {
		return 0, err
	}
	if err := d.engine.SetAvgCPUs(h.monitor, avg); err != nil {
		return 0, err
	}
	return avg, nil
}
