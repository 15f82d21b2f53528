// Package report renders the records accumulated by internal/reduce into
// JSON and CSV as primary output formats, TXT for human summaries, and XML
// kept for format parity with older tooling.
package report

import "github.com/bsc-dlb/talp-go/internal/reduce"

// ProcessRecord is one MPI rank's contribution to one named region: the Go
// mirror of process_record_t plus the owning region's name.
type ProcessRecord struct {
	Region   string
	Rank     int
	PID      int
	Hostname string
	CPUSet   string
	Metrics  reduce.BaseMetrics
}

// NodeProcess is one process's useful/MPI time as reported inside a
// NodeRecord: process_in_node_record_t.
type NodeProcess struct {
	PID        int
	UsefulTime int64
	MPITime    int64
}

// NodeRecord is the per-node extended report: node_record_t. Avg/Max are
// computed by the caller (the collector owns the cross-process fold; this
// package only renders).
type NodeRecord struct {
	NodeID        int
	Processes     []NodeProcess
	AvgUsefulTime int64
	AvgMPITime    int64
	MaxUsefulTime int64
	MaxMPITime    int64
}

// Document is the full set of records a finalize pass has collected,
// independent of output format.
type Document struct {
	Pop     []reduce.PopMetrics
	Node    []NodeRecord
	Process []ProcessRecord
}
