package observer

import (
	"slices"
	"sync"
)

// Observer receives change notifications from an Observable.
type Observer interface {
	Notify()
}

// Func adapts a plain function to the Observer interface.
type Func func()

// Notify calls f.
func (f Func) Notify() { f() }

// Handle is the registration token for an Observer. The same Handle may be
// registered with any number of Observables; identity is the pointer.
type Handle struct {
	observer Observer
}

// NewHandle wraps o in a Handle. A nil Observer yields a Handle whose
// notifications are dropped.
func NewHandle(o Observer) *Handle {
	return &Handle{observer: o}
}

func (h *Handle) notify() {
	if h.observer != nil {
		h.observer.Notify()
	}
}

// Observable is a thread-safe set of Handles. The zero value is ready to use.
type Observable struct {
	mu      sync.Mutex
	handles []*Handle

	// gen is bumped by every Remove. inflight counts running Notify calls by
	// the gen they snapshotted under, so Remove waits only for calls that
	// could still see the removed handle.
	gen      uint64
	inflight map[uint64]int
	done     sync.Cond
}

func (o *Observable) initLocked() {
	if o.inflight == nil {
		o.inflight = make(map[uint64]int)
		o.done.L = &o.mu
	}
}

// Observe registers h. Registering a Handle that is already present is a
// no-op, so no Observer is invoked twice for one notification.
func (o *Observable) Observe(h *Handle) {
	if h == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if slices.Contains(o.handles, h) {
		return
	}
	o.handles = append(o.handles, h)
}

// Remove deregisters h. It is a no-op if h is not registered.
//
// Remove blocks until every Notify that may have snapshotted h has returned,
// so it must not be called from inside a notification delivered by o.
// Notifications started while Remove waits, including ones nested inside a
// running callback, do not block on it.
func (o *Observable) Remove(h *Handle) {
	if h == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := slices.Index(o.handles, h)
	if idx < 0 {
		return
	}
	o.handles = slices.Delete(o.handles, idx, idx+1)

	o.initLocked()
	o.gen++
	for o.runningBefore(o.gen) {
		o.done.Wait()
	}
}

func (o *Observable) runningBefore(gen uint64) bool {
	for g := range o.inflight {
		if g < gen {
			return true
		}
	}
	return false
}

// Notify invokes every registered Observer in registration order. The handle
// list is snapshotted under the lock; callbacks run outside it and may call
// Notify again.
func (o *Observable) Notify() {
	o.mu.Lock()
	o.initLocked()
	gen := o.gen
	o.inflight[gen]++
	snapshot := slices.Clone(o.handles)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.inflight[gen]--; o.inflight[gen] == 0 {
			delete(o.inflight, gen)
			o.done.Broadcast()
		}
		o.mu.Unlock()
	}()

	for _, h := range snapshot {
		h.notify()
	}
}

// Len returns the number of registered handles.
func (o *Observable) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handles)
}
