package shm

import (
	"time"

	"github.com/bsc-dlb/talp-go/internal/errs"
)

// SpinRWLock is a process-shared reader/writer lock living entirely inside
// the mapped segment: state == 0 means free, state == -1 means
// write-locked, state > 0 counts concurrent readers. Go has no portable
// process-shared pthread_rwlock_t, so structural changes that the original
// protects with one are instead protected here with a CAS spin loop backed
// by the shared memory itself -- every attached process CASes the same
// physical word. The one-second acquisition timeout is implemented as a
// bounded spin-with-backoff, surfacing errs.ErrLockTimeout on expiry
// exactly like the original's ETIMEDOUT/EDEADLK path.
type SpinRWLock struct {
	buf []byte
	off int
}

// NewSpinRWLock returns a lock backed by the 4 bytes at off within buf. The
// caller must ensure off is 4-byte aligned and not shared with any other
// field.
func NewSpinRWLock(buf []byte, off int) *SpinRWLock {
	return &SpinRWLock{buf: buf, off: off}
}

const rwLockTimeout = time.Second

// RLock acquires the read-lock, timing out after one second.
func (l *SpinRWLock) RLock() error {
	deadline := time.Now().Add(rwLockTimeout)
	backoff := time.Microsecond
	for {
		cur := LoadInt32(l.buf, l.off)
		if cur >= 0 && CASInt32(l.buf, l.off, cur, cur+1) {
			return nil
		}
		if time.Now().After(deadline) {
			errs.Warn("shm: read-lock at offset %d timed out after %s", l.off, rwLockTimeout)
			return errs.ErrLockTimeout
		}
		time.Sleep(backoff)
		if backoff < time.Millisecond {
			backoff *= 2
		}
	}
}

// RUnlock releases a previously acquired read-lock.
func (l *SpinRWLock) RUnlock() {
	AddInt32(l.buf, l.off, -1)
}

// Lock acquires the write-lock, timing out after one second.
func (l *SpinRWLock) Lock() error {
	deadline := time.Now().Add(rwLockTimeout)
	backoff := time.Microsecond
	for {
		if CASInt32(l.buf, l.off, 0, -1) {
			return nil
		}
		if time.Now().After(deadline) {
			errs.Warn("shm: write-lock at offset %d timed out after %s", l.off, rwLockTimeout)
			return errs.ErrLockTimeout
		}
		time.Sleep(backoff)
		if backoff < time.Millisecond {
			backoff *= 2
		}
	}
}

// Unlock releases a previously acquired write-lock.
func (l *SpinRWLock) Unlock() {
	StoreInt32(l.buf, l.off, 0)
}
