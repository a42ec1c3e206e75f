package chimera

import (
	"runtime"
	"sync/atomic"
)

// nativeBuffers counts the natively backed buffers not yet
// released.
var nativeBuffers atomic.Int64

// Releaser is a resource backed by native memory, which can
// be released deterministically instead of awaiting the
// garbage collector.
type Releaser interface {
	Release() error
}

// DirectBuffer is a byte buffer whose backing memory may live
// outside of the Go heap. It is owned by a single session and
// must not be used after Release.
//
// A natively backed buffer unreachable without Release is
// freed by its finalizer, so the slice from Bytes must not
// outlive the DirectBuffer itself.
type DirectBuffer struct {
	b        []byte
	native   bool
	released bool
}

// NewDirectBuffer allocates a buffer of size bytes, natively
// backed where the platform allows.
func NewDirectBuffer(size int) (*DirectBuffer, error) {
	if size <= 0 {
		return nil, invalidArgument("buffer size must be positive, got %d", size)
	}
	b, native, err := allocDirect(size)
	if err != nil {
		return nil, err
	}
	d := &DirectBuffer{b: b, native: native}
	if native {
		nativeBuffers.Add(1)
		runtime.SetFinalizer(d, func(d *DirectBuffer) {
			if err := d.Release(); err != nil {
				log.Warningf("finalize direct buffer: %v", err)
			}
		})
	}
	return d, nil
}

// Bytes returns the content of the buffer, nil after release.
func (d *DirectBuffer) Bytes() []byte {
	return d.b
}

// Native reports whether the memory is outside of the heap.
func (d *DirectBuffer) Native() bool {
	return d.native
}

// Release frees the backing memory. Releasing twice is a no-op.
func (d *DirectBuffer) Release() error {
	if d.released {
		return nil
	}
	d.released = true
	b := d.b
	d.b = nil
	if !d.native {
		return nil
	}
	runtime.SetFinalizer(d, nil)
	nativeBuffers.Add(-1)
	return freeDirect(b)
}

// FreeDirectBuffer forcibly frees the buffer when it is backed
// by native memory, and does nothing otherwise.
func FreeDirectBuffer(buffer interface{}) {
	r, ok := buffer.(Releaser)
	if !ok {
		return
	}
	if err := r.Release(); err != nil {
		log.Warningf("free direct buffer: %v", err)
	}
}
