package report

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTXT renders doc as a sequence of human-readable tabwriter tables:
// one for POP metrics, one per node, one per region's process list.
func WriteTXT(w io.Writer, doc Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(doc.Pop) > 0 {
		fmt.Fprintln(tw, "=== Monitoring Region POP Metrics ===")
		fmt.Fprintln(tw, "NAME\tELAPSED(ns)\tUSEFUL(ns)\tMPI(ns)\tPAR.EFF\tMPI.EFF\tOMP.EFF")
		fmt.Fprintln(tw, "----\t-----------\t----------\t-------\t-------\t-------\t-------")
		for _, p := range doc.Pop {
			if p.ElapsedTime <= 0 {
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\n", p.Name)
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\n",
				p.Name, p.ElapsedTime, p.UsefulTime, p.MPITime,
				p.ParallelEfficiency, p.MPIParallelEfficiency, p.OMPParallelEfficiency)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	for _, n := range doc.Node {
		fmt.Fprintf(tw, "=== Extended Report Node %d ===\n", n.NodeID)
		fmt.Fprintln(tw, "PROCESS\tUSEFUL TIME (s)\tMPI TIME (s)")
		fmt.Fprintln(tw, "-------\t---------------\t------------")
		for _, p := range n.Processes {
			fmt.Fprintf(tw, "%d\t%e\t%e\n", p.PID, nsToSecs(p.UsefulTime), nsToSecs(p.MPITime))
		}
		if len(n.Processes) > 0 {
			fmt.Fprintf(tw, "Node Avg\t%e\t%e\n", nsToSecs(n.AvgUsefulTime), nsToSecs(n.AvgMPITime))
			fmt.Fprintf(tw, "Node Max\t%e\t%e\n", nsToSecs(n.MaxUsefulTime), nsToSecs(n.MaxMPITime))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	regions := make(map[string][]ProcessRecord)
	var order []string
	for _, p := range doc.Process {
		if _, ok := regions[p.Region]; !ok {
			order = append(order, p.Region)
		}
		regions[p.Region] = append(regions[p.Region], p)
	}
	for _, name := range order {
		fmt.Fprintf(tw, "=== Monitoring Region Summary: %s ===\n", name)
		fmt.Fprintln(tw, "RANK\tPID\tHOSTNAME\tELAPSED(ns)\tUSEFUL(ns)\tMPI(ns)")
		fmt.Fprintln(tw, "----\t---\t--------\t-----------\t----------\t-------")
		for _, p := range regions[name] {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\n",
				p.Rank, p.PID, p.Hostname, p.Metrics.ElapsedTime, p.Metrics.UsefulTime, p.Metrics.MPITime)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	return nil
}

func nsToSecs(ns int64) float64 { return float64(ns) / 1e9 }
