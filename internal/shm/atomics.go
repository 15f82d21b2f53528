package shm

import (
	"sync/atomic"
	"unsafe"
)

// The shared segment is a single mmap'd []byte; every process attached to
// it maps the same physical pages, so ordinary sync/atomic function-style
// operations (which take a pointer, not a struct field) work correctly
// across process boundaries as long as offsets are kept aligned -- which
// every caller's fixed entry offsets guarantee. This is the direct Go analogue of the
// original's DLB_ATOMIC_* macros operating on a pointer into shared memory.

func LoadInt64(buf []byte, off int) int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(&buf[off])))
}

func StoreInt64(buf []byte, off int, v int64) {
	atomic.StoreInt64((*int64)(unsafe.Pointer(&buf[off])), v)
}

func AddInt64(buf []byte, off int, delta int64) int64 {
	return atomic.AddInt64((*int64)(unsafe.Pointer(&buf[off])), delta)
}

func LoadInt32(buf []byte, off int) int32 {
	return atomic.LoadInt32((*int32)(unsafe.Pointer(&buf[off])))
}

func StoreInt32(buf []byte, off int, v int32) {
	atomic.StoreInt32((*int32)(unsafe.Pointer(&buf[off])), v)
}

func AddInt32(buf []byte, off int, delta int32) int32 {
	return atomic.AddInt32((*int32)(unsafe.Pointer(&buf[off])), delta)
}

func CASInt32(buf []byte, off int, old, new int32) bool {
	return atomic.CompareAndSwapInt32((*int32)(unsafe.Pointer(&buf[off])), old, new)
}

func LoadUint32(buf []byte, off int) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&buf[off])))
}

func StoreUint32(buf []byte, off int, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&buf[off])), v)
}
