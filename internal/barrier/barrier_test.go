//go:build linux

package barrier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	return fmt.Sprintf("talp-go-barrier-test-%s", t.Name())
}

func TestRegisterAttachBarrierDetach(t *testing.T) {
	key := testKey(t)
	r, err := Init(key, 1)
	require.NoError(t, err)
	defer r.Finalize()

	h1, err := r.Register("B", false)
	require.NoError(t, err)
	require.Equal(t, "B", h1.Name)

	h2, err := r.Register("B", false)
	require.NoError(t, err)
	require.Equal(t, h1.SlotID, h2.SlotID)

	found, ok := r.Find("B")
	require.True(t, ok)
	require.Equal(t, h1.SlotID, found.SlotID)

	// Two participants: neither call returns until both have arrived.
	done := make(chan error, 1)
	go func() { done <- r.Barrier(h2, nil) }()
	require.NoError(t, r.Barrier(h1, nil))
	require.NoError(t, <-done)
	require.EqualValues(t, 1, r.NTimes(h1))

	remaining, err := r.Detach(h2)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)

	// Last detach zeroes the slot: participants==0 and name cleared, per
	// the two-processes-attach-then-both-detach scenario.
	remaining, err = r.Detach(h1)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	_, ok = r.Find("B")
	require.False(t, ok)
}

func TestRegisterDistinctNamesGetDistinctSlots(t *testing.T) {
	key := testKey(t)
	r, err := Init(key, 1)
	require.NoError(t, err)
	defer r.Finalize()

	h1, err := r.Register("one", false)
	require.NoError(t, err)
	h2, err := r.Register("two", false)
	require.NoError(t, err)
	require.NotEqual(t, h1.SlotID, h2.SlotID)
}

func TestLewiFlagPersistsAcrossAttach(t *testing.T) {
	key := testKey(t)
	r, err := Init(key, 1)
	require.NoError(t, err)
	defer r.Finalize()

	h, err := r.Register("lewi-barrier", true)
	require.NoError(t, err)
	require.True(t, r.IsLewi(h))

	require.NoError(t, r.Attach(h))
	require.True(t, r.IsLewi(h))
}

func TestBarrierInvokesLewiHooksWhenEnabled(t *testing.T) {
	key := testKey(t)
	r, err := Init(key, 1)
	require.NoError(t, err)
	defer r.Finalize()

	h, err := r.Register("hooked", true)
	require.NoError(t, err)

	var intoCalls, outOfCalls int
	hooks := &LewiHooks{
		IntoBlockingCall:  func() { intoCalls++ },
		OutOfBlockingCall: func() { outOfCalls++ },
	}
	require.NoError(t, r.Barrier(h, hooks))
	require.Equal(t, 1, intoCalls)
	require.Equal(t, 1, outOfCalls)
}
