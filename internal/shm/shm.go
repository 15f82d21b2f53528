// Package shm implements the node-local shared-segment host: named,
// versioned, process-shared memory with lifecycle and cleanup hooks. Every
// other shared-memory subsystem (internal/barrier, internal/talpshm) is
// built as a typed view over a shm.Segment.
//
// Go has no portable process-shared pthread_mutex_t or shm_open wrapper the
// way the original C core does, so this package substitutes the two
// idiomatic Go primitives that cover the same ground: a backing file under
// /dev/shm opened with O_CREAT|O_RDWR and mmap'd MAP_SHARED (the de facto
// POSIX shared-memory idiom when shm_open itself isn't available), and
// flock(2) on that same file descriptor for the segment-wide mutual
// exclusion section. See DESIGN.md for the full justification.
package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bsc-dlb/talp-go/internal/errs"
)

// CacheLine is the alignment granularity used to pad shared structures
// against false sharing. The original uses 128 bytes (conservative for
// some server parts); 64 is the common x86-64/arm64 line size and is used
// here, documented as a deliberate deviation.
const CacheLine = 64

// Header layout, the first CacheLine bytes of every segment.
const (
	offInitialized = 0
	offVersion     = 4
	offCapacity    = 8
	offRefCount    = 12
	headerSize     = CacheLine
)

// Props configures Open, mirroring the original's shmem_handler_t props.
type Props struct {
	// Size is the total segment size in bytes, header included.
	Size int
	// Name identifies the segment kind, e.g. "talp", "barrier",
	// "procinfo".
	Name string
	// Key isolates concurrent runs (config option shm-key).
	Key string
	// Version must match across all attachers of a given segment; a
	// mismatch is fatal.
	Version uint32
	// Cleanup is invoked once per entry during CleanupScan, receiving the
	// raw entry bytes and a liveness check for the pid that the segment
	// kind's entry layout records; it returns whether the entry was
	// reclaimed.
	Cleanup func(entry []byte, isOwnerAlive func(pid int32) bool) bool
}

// Segment is a live mapping of a shared segment plus the segment file's own
// descriptor, which also carries the flock for Lock/Unlock.
type Segment struct {
	path    string
	lockFd  int
	data    []byte
	props   Props
	created bool
}

// segmentPath returns /dev/shm/dlb_<kind>_<key>, the persisted-state naming
// convention shared by every segment kind this package hosts.
func segmentPath(kind, key string) string {
	name := "dlb_" + kind
	if key != "" {
		name += "_" + key
	}
	return filepath.Join("/dev/shm", name)
}

// Open creates or attaches to a named shared segment. On first creation the
// header is zero-initialized and the version stamped; on later attachers,
// version and size are verified and a mismatch returns ErrVersionMismatch /
// ErrSizeMismatch (fatal at the call site).
func Open(props Props) (*Segment, error) {
	if props.Size < headerSize {
		props.Size = headerSize
	}
	path := segmentPath(props.Name, props.Key)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	s := &Segment{path: path, lockFd: fd, props: props}

	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: flock %s: %w", path, err)
	}
	defer unix.Flock(fd, unix.LOCK_UN)

	st, err := unix.Fstat(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: fstat %s: %w", path, err)
	}

	if st.Size == 0 {
		if err := unix.Ftruncate(fd, int64(props.Size)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("%w: ftruncate %s: %v", errs.ErrOutOfMemory, path, err)
		}
		s.created = true
	} else if int(st.Size) != props.Size {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: segment %s is %d bytes, want %d",
			errs.ErrSizeMismatch, path, st.Size, props.Size)
	}

	data, err := unix.Mmap(fd, 0, props.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap %s: %v", errs.ErrOutOfMemory, path, err)
	}
	s.data = data

	if s.created {
		StoreUint32(s.data, offVersion, props.Version)
		StoreUint32(s.data, offCapacity, uint32(props.Size-headerSize))
		StoreUint32(s.data, offInitialized, 1)
	} else {
		gotVersion := LoadUint32(s.data, offVersion)
		if gotVersion != props.Version {
			s.unmapAndClose()
			return nil, fmt.Errorf("%w: segment %s has version %d, library wants %d",
				errs.ErrVersionMismatch, path, gotVersion, props.Version)
		}
	}
	AddInt32(s.data, offRefCount, 1)

	return s, nil
}

// Entries returns the flexible-array region of the segment, past the
// header, for the caller's own entry codec (internal/barrier and
// internal/talpshm each interpret this region differently).
func (s *Segment) Entries() []byte {
	return s.data[headerSize:]
}

// Lock acquires the segment-wide mutual exclusion section used to
// serialize structural changes (registration, teardown).
func (s *Segment) Lock() error {
	return unix.Flock(s.lockFd, unix.LOCK_EX)
}

// Unlock releases the section acquired by Lock.
func (s *Segment) Unlock() error {
	return unix.Flock(s.lockFd, unix.LOCK_UN)
}

// CleanupScan walks entrySize-wide slices of Entries(), invoking the
// segment's Cleanup hook (if configured) for each, so that resources owned
// by now-dead processes are released. isOwnerAlive is supplied by the
// caller, who knows how to interpret the pid field of its own entry shape.
func (s *Segment) CleanupScan(entrySize int, isOwnerAlive func(pid int32) bool) {
	if s.props.Cleanup == nil {
		return
	}
	entries := s.Entries()
	for off := 0; off+entrySize <= len(entries); off += entrySize {
		s.props.Cleanup(entries[off:off+entrySize], isOwnerAlive)
	}
}

// ZeroAll zeroes the entire entries region, used when a CleanupScan finds
// no live owners left.
func (s *Segment) ZeroAll() {
	entries := s.Entries()
	for i := range entries {
		entries[i] = 0
	}
}

// Finalize decrements the segment's reference count; when it reaches zero
// the segment is unmapped, unlocked, and unlinked from /dev/shm. If
// checkEmpty is set and the entries region is non-zero, Finalize still
// unlinks (best effort) but returns an error describing the leak, mirroring
// the original's "print any collected summaries... unwritable output falls
// back to log" best-effort finalize philosophy -- finalize never panics.
func (s *Segment) Finalize(checkEmpty bool) error {
	remaining := AddInt32(s.data, offRefCount, -1)

	var leakErr error
	if checkEmpty && remaining <= 0 {
		entries := s.Entries()
		for _, b := range entries {
			if b != 0 {
				leakErr = fmt.Errorf("shm: segment %s finalized with non-empty entries", s.path)
				break
			}
		}
	}

	if remaining > 0 {
		return s.unmapAndClose()
	}

	if err := s.unmapAndClose(); err != nil {
		return err
	}
	if err := unix.Unlink(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("shm: unlink %s: %w", s.path, err)
	}
	return leakErr
}

func (s *Segment) unmapAndClose() error {
	var err error
	if s.data != nil {
		err = unix.Munmap(s.data)
		s.data = nil
	}
	if cerr := unix.Close(s.lockFd); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Version returns the stamped version of an open segment.
func (s *Segment) Version() uint32 { return LoadUint32(s.data, offVersion) }

// Capacity returns the usable entries-region size in bytes.
func (s *Segment) Capacity() uint32 { return LoadUint32(s.data, offCapacity) }
