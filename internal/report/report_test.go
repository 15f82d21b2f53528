package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bsc-dlb/talp-go/internal/reduce"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Pop: []reduce.PopMetrics{
			{
				Name: "Global",
				BaseMetrics: reduce.BaseMetrics{
					NumCPUs: 4, ElapsedTime: 1000, UsefulTime: 700, MPITime: 200,
				},
				ParallelEfficiency: 0.7,
			},
		},
		Node: []NodeRecord{
			{
				NodeID:        0,
				Processes:     []NodeProcess{{PID: 100, UsefulTime: 700, MPITime: 200}},
				AvgUsefulTime: 700, AvgMPITime: 200,
				MaxUsefulTime: 700, MaxMPITime: 200,
			},
		},
		Process: []ProcessRecord{
			{
				Region: "Global", Rank: 0, PID: 100, Hostname: "node01", CPUSet: "0-3",
				Metrics: reduce.BaseMetrics{NumCPUs: 4, ElapsedTime: 1000, UsefulTime: 700, MPITime: 200},
			},
		},
	}
}

func TestWriteJSONProducesExpectedShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleDocument()))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Contains(t, parsed, "popMetrics")
	require.Contains(t, parsed, "node")
	require.Contains(t, parsed, "region")

	pop := parsed["popMetrics"].(map[string]any)["Global"].(map[string]any)
	require.InDelta(t, 1000.0, pop["elapsedTime"], 0.0001)
}

func TestWriteJSONOmitsEmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Document{}))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.NotContains(t, parsed, "popMetrics")
	require.NotContains(t, parsed, "node")
	require.NotContains(t, parsed, "region")
}

func TestWriteTXTIncludesEveryRecordKind(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTXT(&buf, sampleDocument()))
	out := buf.String()
	require.Contains(t, out, "POP Metrics")
	require.Contains(t, out, "Extended Report Node 0")
	require.Contains(t, out, "Monitoring Region Summary: Global")
}

func TestWriteXMLRoundTripsStructure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, sampleDocument()))
	require.Contains(t, buf.String(), "<talp>")
	require.Contains(t, buf.String(), "<popMetrics>")
}

func TestWriteCSVSplitsIntoThreeFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report.csv")
	require.NoError(t, WriteCSV(base, sampleDocument()))

	require.FileExists(t, filepath.Join(dir, "report-pop.csv"))
	require.FileExists(t, filepath.Join(dir, "report-node.csv"))
	require.FileExists(t, filepath.Join(dir, "report-process.csv"))
}

func TestWriteCSVAppendsWithoutRepeatingHeader(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report.csv")
	doc := sampleDocument()

	require.NoError(t, WriteCSV(base, doc))
	require.NoError(t, WriteCSV(base, doc))

	data, err := os.ReadFile(filepath.Join(dir, "report-pop.csv"))
	require.NoError(t, err)
	lines := bytes.Count(data, []byte("\n"))
	require.Equal(t, 3, lines) // 1 header + 2 data rows
}

func TestWriteCSVWritesSingleFileWhenOnlyOneKindPresent(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report.csv")
	require.NoError(t, WriteCSV(base, Document{Pop: []reduce.PopMetrics{{Name: "Global"}}}))

	require.FileExists(t, filepath.Join(dir, "report.csv"))
	require.NoFileExists(t, filepath.Join(dir, "report-pop.csv"))
	require.NoFileExists(t, filepath.Join(dir, "report-node.csv"))
	require.NoFileExists(t, filepath.Join(dir, "report-process.csv"))
}

func TestWriteCSVWritesNothingWhenDocEmpty(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report.csv")
	require.NoError(t, WriteCSV(base, Document{}))

	require.NoFileExists(t, filepath.Join(dir, "report.csv"))
}
