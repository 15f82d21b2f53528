// Package errs defines the typed error taxonomy of the profiler core, one
// sentinel value per outcome, grouped by subsystem: a single var block, one
// doc comment per error, no custom error struct hierarchy. Callers compare
// with errors.Is; nothing here is ever retried internally.
package errs

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	// Success is returned by operations that have no richer sentinel and
	// completed normally. Kept distinct from nil only where call sites
	// historically distinguish "no error" from "no-op"; prefer nil in Go.
	Success error = nil

	// Noupdt means the call was a no-op by design: start on an already
	// started region, stop on a region that was never started, or a
	// reset on a region disabled by the region-select filter.
	Noupdt = errors.New("talp: not updated (idempotent no-op)")

	// NoEntry means the named region, barrier, or slot does not exist.
	NoEntry = errors.New("talp: no such entry")

	// NoMemory means a fixed-capacity table (shared region slots, a
	// barrier array) is exhausted.
	NoMemory = errors.New("talp: no memory (capacity exhausted)")

	// NoShmem means a shared segment a sibling process expected to find
	// is missing -- e.g. querying a pid that never attached.
	NoShmem = errors.New("talp: no shared memory segment")

	// NoProc means the referenced pid is not currently alive.
	NoProc = errors.New("talp: no such process")

	// NoTalp means the TALP engine was not enabled for this process
	// (talp=no) and an API call that requires it was made anyway.
	NoTalp = errors.New("talp: talp not enabled")

	// NoComp marks a feature compiled out of this build, e.g. PAPI
	// hardware counters (always out of scope for this core).
	NoComp = errors.New("talp: feature not compiled in")

	// Permission means an observer thread attempted a mutating call
	// (start/stop/reset or a state transition).
	Permission = errors.New("talp: permission denied (observer thread)")

	// Init means a shared segment was opened whose stamped version does
	// not match the running library's version, or the process tried to
	// re-initialize an already-initialized engine.
	Init = errors.New("talp: version mismatch or re-initialization")

	// Unknown is the catch-all for errors the core cannot otherwise
	// classify; it should never be returned from a well-formed code path.
	Unknown = errors.New("talp: unknown error")

	// ErrSizeMismatch means two clients of the same shared segment
	// disagree on its capacity.
	ErrSizeMismatch = errors.New("shm: size mismatch between attachers")

	// ErrVersionMismatch means a shared segment predates a library
	// upgrade and cannot be safely reused.
	ErrVersionMismatch = errors.New("shm: version mismatch")

	// ErrOutOfMemory means segment creation failed (mmap/ftruncate).
	ErrOutOfMemory = errors.New("shm: out of memory")

	// ErrLockTimeout means the 1-second wait on a per-barrier rw-lock
	// expired: the peer holding the lock is presumed dead or hung. The
	// rw-lock and internal/barrier return it to their caller; nothing in
	// this module aborts the process on it.
	ErrLockTimeout = errors.New("shm: lock acquisition timed out")
)

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *zap.SugaredLogger
)

// SetLogger installs the process-wide logger used by Fatal and Warn when no
// logger is threaded explicitly to the call site (e.g. a timeout surfaced
// deep inside internal/shm, far from cmd/talpctl's constructed logger).
// Call once at process startup; nil disables logging (falls back to
// stderr for Fatal, drops Warn calls silently).
func SetLogger(l *zap.SugaredLogger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// DefaultLogger returns the logger installed by SetLogger, or nil if none
// was installed.
func DefaultLogger() *zap.SugaredLogger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Warn logs msg at Warn level through the default logger, a no-op if none
// is installed. Used for recoverable anomalies that still finish the
// call (e.g. a GPU plugin read that came back empty) rather than aborting
// the process.
func Warn(msg string, args ...any) {
	if l := DefaultLogger(); l != nil {
		l.Warnf(msg, args...)
	}
}

// Fatal logs a diagnostic at Fatal level and terminates the process, the way
// the original aborts on configuration, version, and allocation failures at
// startup ("fatal; process aborts with a diagnostic pointing to the bug
// tracker"). It is the only function in this package that does not return.
func Fatal(logger *zap.SugaredLogger, msg string, args ...any) {
	formatted := fmt.Sprintf(msg, args...)
	if logger == nil {
		logger = DefaultLogger()
	}
	if logger != nil {
		logger.Fatalw(formatted,
			"bugTracker", "https://github.com/bsc-dlb/talp-go/issues")
		return
	}
	// No logger configured (e.g. called before init): fall back to
	// stderr + os.Exit so the process still aborts.
	fmt.Fprintf(os.Stderr, "talp: fatal: %s (report at https://github.com/bsc-dlb/talp-go/issues)\n", formatted)
	os.Exit(1)
}
