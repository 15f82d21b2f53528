package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanAndMergeDropsInvalidRecords(t *testing.T) {
	records := []Record{
		{Start: 10, End: 10}, // invalid: zero-length
		{Start: 20, End: 15}, // invalid: end before start
		{Start: 0, End: 5},
	}
	got := CleanAndMerge(records)
	require.Equal(t, []Record{{Start: 0, End: 5}}, got)
}

func TestCleanAndMergeSortsAndMergesOverlapping(t *testing.T) {
	records := []Record{
		{Start: 100, End: 150},
		{Start: 0, End: 50},
		{Start: 40, End: 60}, // overlaps the second, after sort
		{Start: 200, End: 210},
	}
	got := CleanAndMerge(records)
	require.Equal(t, []Record{
		{Start: 0, End: 60},
		{Start: 100, End: 150},
		{Start: 200, End: 210},
	}, got)
}

func TestCleanAndMergeAbsorbsContainedInterval(t *testing.T) {
	records := []Record{
		{Start: 0, End: 100},
		{Start: 10, End: 20}, // fully contained, must not shrink the merged end
	}
	got := CleanAndMerge(records)
	require.Equal(t, []Record{{Start: 0, End: 100}}, got)
}

func TestDurationSumsMergedIntervals(t *testing.T) {
	records := []Record{{Start: 0, End: 10}, {Start: 20, End: 25}}
	require.EqualValues(t, 15, Duration(records))
}

func TestMemoryExclusiveDurationSubtractsOverlappingKernels(t *testing.T) {
	mem := []Record{{Start: 0, End: 100}}
	kernels := []Record{{Start: 20, End: 40}, {Start: 60, End: 70}}
	// exclusive: [0,20) + [40,60) + [70,100) = 20 + 20 + 30 = 70
	require.EqualValues(t, 70, MemoryExclusiveDuration(mem, kernels))
}

func TestMemoryExclusiveDurationNoOverlap(t *testing.T) {
	mem := []Record{{Start: 0, End: 10}}
	kernels := []Record{{Start: 100, End: 200}}
	require.EqualValues(t, 10, MemoryExclusiveDuration(mem, kernels))
}

func TestMemoryExclusiveDurationKernelCoversEntireMemoryWindow(t *testing.T) {
	mem := []Record{{Start: 10, End: 20}}
	kernels := []Record{{Start: 0, End: 100}}
	require.EqualValues(t, 0, MemoryExclusiveDuration(mem, kernels))
}

func TestDropBeforeWatermarkDropsRecordsEndingAtOrBeforeIt(t *testing.T) {
	records := []Record{
		{Start: 0, End: 10},  // ends before watermark: dropped
		{Start: 5, End: 20},  // ends exactly at watermark: dropped
		{Start: 15, End: 30}, // ends after watermark: kept
	}
	got := DropBeforeWatermark(records, 20)
	require.Equal(t, []Record{{Start: 15, End: 30}}, got)
}

func TestMemoryExclusiveDurationMultipleMemoryRecordsShareKernelCursor(t *testing.T) {
	mem := []Record{{Start: 0, End: 10}, {Start: 50, End: 60}}
	kernels := []Record{{Start: 5, End: 8}, {Start: 55, End: 58}}
	// first mem: [0,5)+[8,10) = 5+2 = 7; second mem: [50,55)+[58,60) = 5+2 = 7
	require.EqualValues(t, 14, MemoryExclusiveDuration(mem, kernels))
}
