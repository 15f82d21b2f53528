package talp

import (
	"github.com/bsc-dlb/talp-go/internal/errs"
	"github.com/bsc-dlb/talp-go/internal/region"
)

// StartRegion opens m: flushes every sample into the regions currently
// open (so m doesn't inherit time that belongs to an already-running
// sibling), stamps m's start time as the calling sample's
// last-updated-timestamp (the flush above just force-updated it), and
// forces the calling sample to Useful if it wasn't already -- the fallback
// the original takes when neither MPI nor OpenMP instrumentation has run
// yet. Mirrors region_start.
func (e *Engine) StartRegion(m *region.Monitor, caller *Sample) error {
	e.FlushToRegions()

	if err := e.regions.OpenRegion(m, caller.LastUpdated()); err != nil {
		return err
	}

	if caller.State() != Useful {
		caller.SetState(Useful)
	}
	return nil
}

// StopRegion closes m: flushes every sample (so m's own closing slice of
// time is attributed before it stops accepting updates), then stamps m's
// stop time from the calling sample's last-updated-timestamp. Mirrors
// region_stop.
func (e *Engine) StopRegion(m *region.Monitor, caller *Sample) error {
	e.FlushToRegions()
	return e.regions.CloseRegion(m, caller.LastUpdated())
}

// StopLastOpen closes the innermost open region, mirroring region_stop's
// DLB_LAST_OPEN_REGION handling.
func (e *Engine) StopLastOpen(caller *Sample) (*region.Monitor, error) {
	e.FlushToRegions()

	open := e.regions.OpenRegions()
	if len(open) == 0 {
		return nil, errs.NoEntry
	}
	target := open[len(open)-1]
	if err := e.regions.CloseRegion(target, caller.LastUpdated()); err != nil {
		return nil, err
	}
	return target, nil
}

// ResetRegion stops m if started (via StopRegion, so outstanding time is
// still attributed) and then clears its counters, mirroring region_reset.
func (e *Engine) ResetRegion(m *region.Monitor, caller *Sample) {
	if e.regions.IsOpen(m) {
		_ = e.StopRegion(m, caller)
	}
	e.regions.Reset(m)
}
