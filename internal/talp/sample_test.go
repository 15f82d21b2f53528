package talp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleUpdateAccumulatesIntoCurrentStateTimer(t *testing.T) {
	s := NewSample()
	s.SetState(Useful)

	start := s.LastUpdated()
	s.Update(start + 1000)
	require.EqualValues(t, 1000, s.Useful.LoadRlx())
	require.Equal(t, start+1000, s.LastUpdated())
}

func TestUpdateClosesPreviousMicrosampleBeforeStateSwitch(t *testing.T) {
	s := NewSample()
	s.state = Useful
	s.lastUpdated = 1000

	// Update(2000) closes the Useful microsample [1000,2000) before the
	// state below is switched by a direct assignment (all SetState does;
	// it touches no timer), without depending on the wall clock.
	s.Update(2000)
	s.state = NotUsefulMPI
	s.Update(2500)

	require.EqualValues(t, 1000, s.Useful.LoadRlx())
	require.EqualValues(t, 500, s.NotUsefulMPI.LoadRlx())
	require.Equal(t, NotUsefulMPI, s.State())
}

func TestDisabledStateAccumulatesNoTimer(t *testing.T) {
	s := NewSample()
	start := s.LastUpdated()
	s.lastUpdated = start - 1000
	s.Update(start)

	require.Zero(t, s.Useful.LoadRlx())
	require.Zero(t, s.NotUsefulMPI.LoadRlx())
}

func TestFlushIntoDrainsTimersAndCounters(t *testing.T) {
	s := NewSample()
	s.SetState(Useful)
	s.lastUpdated -= 100
	s.NumMPICalls.AddRlx(3)

	var m Macrosample
	s.flushInto(s.LastUpdated()+100, &m)

	require.EqualValues(t, 100, m.Useful)
	require.EqualValues(t, 3, m.NumMPICalls)
	require.Zero(t, s.Useful.LoadRlx())
	require.Zero(t, s.NumMPICalls.LoadRlx())
}
