// Package dlb is the public control API: region lifecycle, collection
// (cross-process POP metric reduction), and out-of-band observer access,
// wired onto internal/talp, internal/region, internal/talpshm, and
// internal/barrier.
package dlb

import (
	"github.com/bsc-dlb/talp-go/internal/barrier"
	"github.com/bsc-dlb/talp-go/internal/cpusample"
	"github.com/bsc-dlb/talp-go/internal/region"
	"github.com/bsc-dlb/talp-go/internal/talp"
	"github.com/bsc-dlb/talp-go/internal/talpshm"
)

// Handle is an opaque reference to a monitoring region, the Go analogue of
// dlb_monitor_t*.
type Handle struct {
	monitor *region.Monitor
}

// Name returns the handle's region name.
func (h Handle) Name() string { return h.monitor.Name }

// DLB is a producer process's administrative handle onto its own engine,
// region store, and the node-shared registries it publishes into.
type DLB struct {
	PID int32

	engine   *talp.Engine
	regions  *region.Store
	shared   *talpshm.Registry
	barriers *barrier.Registry
	cpu      map[string]*cpusample.Sampler
}

// New wraps an already-initialized engine and region store, optionally
// paired with the shared TALP registry (external-profiler publishing) and
// the barrier registry (node-wide collection).
func New(pid int32, engine *talp.Engine, regions *region.Store, shared *talpshm.Registry, barriers *barrier.Registry) *DLB {
	return &DLB{PID: pid, engine: engine, regions: regions, shared: shared, barriers: barriers}
}

// RegisterRegion registers (or returns the existing) named region. Mirrors
// DLB_MonitoringRegionRegister.
func (d *DLB) RegisterRegion(name string) (Handle, error) {
	m, err := d.regions.Register(name)
	return Handle{monitor: m}, err
}

// GlobalRegion returns the handle of the always-present global region.
func (d *DLB) GlobalRegion() Handle {
	return Handle{monitor: d.regions.Global()}
}

// LastOpenRegion returns the innermost currently open region, without
// closing it.
func (d *DLB) LastOpenRegion() (Handle, bool) {
	m, ok := d.regions.LastOpen()
	return Handle{monitor: m}, ok
}

// StartRegion starts h, attributed to the calling worker slot. Mirrors
// DLB_MonitoringRegionStart.
func (d *DLB) StartRegion(h Handle, slot int) error {
	return d.engine.StartRegion(h.monitor, d.engine.Sample(slot))
}

// StopRegion stops h, attributed to the calling worker slot. Mirrors
// DLB_MonitoringRegionStop.
func (d *DLB) StopRegion(h Handle, slot int) error {
	return d.engine.StopRegion(h.monitor, d.engine.Sample(slot))
}

// StopLastOpenRegion stops the innermost currently open region. Mirrors
// DLB_MonitoringRegionStop called with the DLB_LAST_OPEN_REGION sentinel.
func (d *DLB) StopLastOpenRegion(slot int) (Handle, error) {
	m, err := d.engine.StopLastOpen(d.engine.Sample(slot))
	return Handle{monitor: m}, err
}

// ResetRegion stops h if started and clears its counters. Mirrors
// DLB_MonitoringRegionReset.
func (d *DLB) ResetRegion(h Handle, slot int) {
	d.engine.ResetRegion(h.monitor, d.engine.Sample(slot))
}
