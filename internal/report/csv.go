package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bsc-dlb/talp-go/internal/reduce"
)

var (
	popCSVHeader = []string{
		"Name", "NumCpus", "NumMpiRanks", "NumNodes", "AvgCpus",
		"NumMeasurements", "NumMpiCalls", "NumOmpParallels", "NumOmpTasks",
		"ElapsedTime", "UsefulTime", "MpiTime",
		"OmpLoadImbalanceTime", "OmpSchedulingTime", "OmpSerializationTime",
		"ParallelEfficiency", "MpiParallelEfficiency", "MpiCommunicationEfficiency",
		"MpiLoadBalance", "MpiLoadBalanceIn", "MpiLoadBalanceOut",
		"OmpParallelEfficiency", "OmpLoadBalance", "OmpSchedulingEfficiency",
		"OmpSerializationEfficiency",
	}
	nodeCSVHeader = []string{
		"NodeId", "ProcessId", "ProcessUsefulTime", "ProcessMpiTime",
		"NodeAvgUsefulTime", "NodeAvgMpiTime", "NodeMaxUsefulTime", "NodeMaxMpiTime",
	}
	processCSVHeader = []string{
		"Region", "Rank", "PID", "Hostname", "CpuSet", "NumCpus", "AvgCpus",
		"NumMeasurements", "NumMpiCalls", "NumOmpParallels", "NumOmpTasks",
		"ElapsedTime", "UsefulTime", "MpiTime",
		"OmpLoadImbalance", "OmpSchedulingTime", "OmpSerializationTime",
	}
)

func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
func i64(v int64) string   { return strconv.FormatInt(v, 10) }

func popCSVRow(p reduce.PopMetrics) []string {
	return []string{
		p.Name, strconv.Itoa(p.NumCPUs), strconv.Itoa(p.NumMPIRanks), strconv.Itoa(p.NumNodes), f64(p.AvgCPUs),
		i64(p.NumMeasurements), i64(p.NumMPICalls), i64(p.NumOMPParallels), i64(p.NumOMPTasks),
		i64(p.ElapsedTime), i64(p.UsefulTime), i64(p.MPITime),
		i64(p.OMPLoadImbalanceTime), i64(p.OMPSchedulingTime), i64(p.OMPSerializationTime),
		f64(p.ParallelEfficiency), f64(p.MPIParallelEfficiency), f64(p.MPICommunicationEfficiency),
		f64(p.MPILoadBalance), f64(p.MPILoadBalanceIn), f64(p.MPILoadBalanceOut),
		f64(p.OMPParallelEfficiency), f64(p.OMPLoadBalance), f64(p.OMPSchedulingEfficiency),
		f64(p.OMPSerializationEfficiency),
	}
}

func nodeCSVRows(n NodeRecord) [][]string {
	rows := make([][]string, 0, len(n.Processes))
	for _, p := range n.Processes {
		rows = append(rows, []string{
			strconv.Itoa(n.NodeID), strconv.Itoa(p.PID), i64(p.UsefulTime), i64(p.MPITime),
			i64(n.AvgUsefulTime), i64(n.AvgMPITime), i64(n.MaxUsefulTime), i64(n.MaxMPITime),
		})
	}
	return rows
}

func processCSVRow(p ProcessRecord) []string {
	m := p.Metrics
	return []string{
		p.Region, strconv.Itoa(p.Rank), strconv.Itoa(p.PID), p.Hostname, p.CPUSet,
		strconv.Itoa(m.NumCPUs), f64(m.AvgCPUs),
		i64(m.NumMeasurements), i64(m.NumMPICalls), i64(m.NumOMPParallels), i64(m.NumOMPTasks),
		i64(m.ElapsedTime), i64(m.UsefulTime), i64(m.MPITime),
		i64(m.OMPLoadImbalanceTime), i64(m.OMPSchedulingTime), i64(m.OMPSerializationTime),
	}
}

// writeCSVFile appends rows to path, writing header first only when the
// file does not already exist -- mirrors talp_output_finalize's
// append-vs-truncate choice based on whether the output path already
// existed before this run.
func writeCSVFile(path string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: creating directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: opening %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("report: writing header to %s: %w", path, err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

func popCSVRows(records []reduce.PopMetrics) [][]string {
	rows := make([][]string, 0, len(records))
	for _, p := range records {
		rows = append(rows, popCSVRow(p))
	}
	return rows
}

func nodeCSVRowsAll(records []NodeRecord) [][]string {
	var rows [][]string
	for _, n := range records {
		rows = append(rows, nodeCSVRows(n)...)
	}
	return rows
}

func processCSVRows(records []ProcessRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, p := range records {
		rows = append(rows, processCSVRow(p))
	}
	return rows
}

// WriteCSV writes doc's records as CSV next to basePath. A single combined
// CSV file cannot hold three differently-shaped tables, so when more than
// one record kind is present, WriteCSV splits across up to three files
// (-pop.csv, -node.csv, -process.csv), one per kind that doc actually
// holds. When at most one kind is present, everything goes to the bare
// basePath instead -- matching talp_output_finalize's CSV fan-out, which
// only splits when it has more than one kind of record to write. An
// existing file is appended to without a repeated header.
func WriteCSV(basePath string, doc Document) error {
	kinds := 0
	if len(doc.Pop) > 0 {
		kinds++
	}
	if len(doc.Node) > 0 {
		kinds++
	}
	if len(doc.Process) > 0 {
		kinds++
	}

	if kinds <= 1 {
		switch {
		case len(doc.Pop) > 0:
			return writeCSVFile(basePath, popCSVHeader, popCSVRows(doc.Pop))
		case len(doc.Node) > 0:
			return writeCSVFile(basePath, nodeCSVHeader, nodeCSVRowsAll(doc.Node))
		case len(doc.Process) > 0:
			return writeCSVFile(basePath, processCSVHeader, processCSVRows(doc.Process))
		default:
			return nil
		}
	}

	ext := filepath.Ext(basePath)
	stem := basePath[:len(basePath)-len(ext)]

	if err := writeCSVFile(stem+"-pop.csv", popCSVHeader, popCSVRows(doc.Pop)); err != nil {
		return err
	}
	if err := writeCSVFile(stem+"-node.csv", nodeCSVHeader, nodeCSVRowsAll(doc.Node)); err != nil {
		return err
	}
	return writeCSVFile(stem+"-process.csv", processCSVHeader, processCSVRows(doc.Process))
}
