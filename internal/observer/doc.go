// Package observer provides the publish/subscribe primitive every other
// konnekt component builds its change propagation on.
//
// An Observable holds a set of Handles. Notify calls each registered
// Handle synchronously, in registration order. The Observable's lock is held
// only long enough to snapshot the handle list, so Observe and Remove may be
// called concurrently with Notify.
//
// Ownership is single and explicit: the Observable keeps a reference to each
// Handle until Remove is called for it. Once Remove returns, the Handle's
// Observer is never invoked again by that Observable, even by a Notify that
// was already in flight.
//
// Constraint: an Observer must not call Remove for its own Handle from inside
// its Notify callback. Doing so deadlocks on the handle's invocation lock.
package observer
