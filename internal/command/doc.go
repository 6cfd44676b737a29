// Package command implements asynchronous Commands and the single-worker
// Command Queue that executes them.
//
// ARCHITECTURE:
//
// Single-Worker Queue:
// Every Queue owns exactly one worker goroutine. Commands committed from any
// goroutine are appended to a pending list and executed one at a time, in
// commit order, on that worker. The worker swaps out the whole pending batch
// under the lock and runs the batch outside it, so a long-running Command
// never blocks new submissions.
//
// Command Life-Cycle:
//
//	Created -> Queued -> Busy -> Success | Failed
//	Created -> Queued -> Aborted            (Abort before Busy, or forced Stop)
//
// Each transition is reported to the Command's Observer and to the
// observer.Observable embedded in the Command. A terminal state is final.
//
// Capability Token:
// The worker hands each WorkFunc a *Token that is valid only while that
// Command is Busy on that Queue. Graph operations in package network require
// a valid Token, which makes "only mutate the graph from the worker"
// an enforced contract instead of a convention.
//
// Failure Isolation:
// Errors returned by a WorkFunc become Fail(reason). Panics are recovered and
// collapsed to a generic reason. Neither terminates the worker.
package command
