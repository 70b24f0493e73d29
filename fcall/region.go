package fcall

import "sync"

// Region models one executor memory region. Values boxed into a region
// live until the region is released; release runs the registered
// teardown callbacks in reverse registration order, once.
//
// A per-call region is released after every invocation. A multi-call
// region survives across the invocations of one set-returning call and
// is released when the scan ends.
type Region struct {
	name string

	mu        sync.Mutex
	released  bool
	teardowns []func()
}

// NewRegion returns a live region with the given diagnostic name.
func NewRegion(name string) *Region {
	return &Region{name: name}
}

// Name returns the diagnostic name the region was created with.
func (r *Region) Name() string { return r.name }

// OnRelease registers fn to run when the region is released. If the
// region is already released fn runs immediately.
func (r *Region) OnRelease(fn func()) {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		fn()
		return
	}
	r.teardowns = append(r.teardowns, fn)
	r.mu.Unlock()
}

// Released reports whether the region has been released.
func (r *Region) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// Release tears the region down. Callbacks run in reverse registration
// order; a second Release is a no-op.
func (r *Region) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	teardowns := r.teardowns
	r.teardowns = nil
	r.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
}
