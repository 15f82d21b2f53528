package gpu

import "sync"

// RecordCollector accumulates raw kernel and memory-copy activity
// intervals for one GPU device and reduces them into a Measurements
// window on demand. A concrete Plugin backend embeds a RecordCollector
// and feeds it timestamped intervals as the runtime reports them;
// SamplingPlugin below is the reference wiring.
type RecordCollector struct {
	mu            sync.Mutex
	kernels       []Record
	memCopies     []Record
	safeTimestamp uint64
}

// AddKernel buffers one kernel-launch interval.
func (c *RecordCollector) AddKernel(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kernels = append(c.kernels, r)
}

// AddMemCopy buffers one memory-transfer interval.
func (c *RecordCollector) AddMemCopy(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memCopies = append(c.memCopies, r)
}

// Reset advances the safe-timestamp watermark to ts and discards every
// buffered record. Call this when the underlying device or stream resets:
// any event the runtime still delivers for an interval that ends at or
// before ts is stale and is dropped by Sample, so it does not count toward
// the window that follows.
func (c *RecordCollector) Reset(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.safeTimestamp = ts
	c.kernels = nil
	c.memCopies = nil
}

// Sample drops every buffered record ending at or before the watermark,
// cleans and merges what remains, and returns the reduced window. The
// buffers are cleared so the next call only sees activity recorded since
// this one.
func (c *RecordCollector) Sample() Measurements {
	c.mu.Lock()
	kernels := DropBeforeWatermark(c.kernels, c.safeTimestamp)
	memCopies := DropBeforeWatermark(c.memCopies, c.safeTimestamp)
	c.kernels, c.memCopies = nil, nil
	c.mu.Unlock()

	kernels = CleanAndMerge(kernels)
	memCopies = CleanAndMerge(memCopies)

	return Measurements{
		Useful:        int64(Duration(kernels)),
		Communication: int64(MemoryExclusiveDuration(memCopies, kernels)),
	}
}

// SamplingPlugin is a Plugin backed by a RecordCollector: AddKernel/
// AddMemCopy feed it raw activity as the GPU runtime reports it, and
// UpdateSample reduces whatever has accumulated since the previous call.
type SamplingPlugin struct {
	RecordCollector
	Affinity []int
}

func (p *SamplingPlugin) UpdateSample() Measurements { return p.Sample() }
func (p *SamplingPlugin) GetAffinity() []int         { return p.Affinity }
