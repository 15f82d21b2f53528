package dlb

import (
	"io"

	"github.com/bsc-dlb/talp-go/internal/reduce"
	"github.com/bsc-dlb/talp-go/internal/report"
)

// ReportRegion writes a single-process summary of h to w: its own POP
// metrics computed in isolation (no cross-process reduction), the same
// shape Collection's wider reductions produce. Mirrors
// DLB_MonitoringRegionReport, which prints to stderr; the caller picks the
// writer and, with WriteJSON/WriteCSV instead, the format.
func (d *DLB) ReportRegion(w io.Writer, h Handle, model reduce.Model) error {
	base := reduce.FromMonitor(h.monitor, reduce.NodeUsage{}, false, false, 1)
	pop := reduce.ToPopMetrics(h.monitor.Name, base, model)
	doc := report.Document{Pop: []reduce.PopMetrics{pop}}
	return report.WriteTXT(w, doc)
}
