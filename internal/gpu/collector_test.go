package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordCollectorSampleCleansAndMergesBufferedIntervals(t *testing.T) {
	var c RecordCollector
	c.AddKernel(Record{Start: 0, End: 10})
	c.AddKernel(Record{Start: 5, End: 20})
	c.AddMemCopy(Record{Start: 0, End: 30})

	m := c.Sample()
	require.EqualValues(t, 20, m.Useful)
	require.EqualValues(t, 10, m.Communication)
}

func TestRecordCollectorSampleClearsBuffersBetweenCalls(t *testing.T) {
	var c RecordCollector
	c.AddKernel(Record{Start: 0, End: 10})
	first := c.Sample()
	require.EqualValues(t, 10, first.Useful)

	second := c.Sample()
	require.Zero(t, second.Useful)
}

func TestRecordCollectorResetDropsLateOutOfOrderFlush(t *testing.T) {
	var c RecordCollector
	c.AddKernel(Record{Start: 0, End: 100})

	// The device resets at ts=100; any record the runtime still delivers
	// for an interval that ends at or before the reset point is stale.
	c.Reset(100)

	// An out-of-order flush from before the reset arrives late.
	c.AddKernel(Record{Start: 10, End: 50})
	// Activity genuinely after the reset point is kept.
	c.AddKernel(Record{Start: 150, End: 200})

	m := c.Sample()
	require.EqualValues(t, 50, m.Useful)
}

func TestSamplingPluginImplementsPluginAndGPUResetter(t *testing.T) {
	p := &SamplingPlugin{Affinity: []int{0, 1}}
	p.AddKernel(Record{Start: 0, End: 10})

	m := p.UpdateSample()
	require.EqualValues(t, 10, m.Useful)
	require.Equal(t, []int{0, 1}, p.GetAffinity())

	p.Reset(5)
	require.EqualValues(t, 5, p.safeTimestamp)
}
