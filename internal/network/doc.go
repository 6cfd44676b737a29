// Package network implements the Processing Network: a directed graph of
// Algorithms linked by typed Connectors, executed by topologically ordered
// run passes.
//
// ARCHITECTURE:
//
// Single Owner:
// A Network owns the Algorithm set, the Connection set, and exactly one
// command.Queue. There is no global instance; construct one Network and pass
// it to every collaborator that submits work.
//
// Worker-Only Graph Access:
// Every graph operation (AddAlgorithm, Connect, RemoveAlgorithm, Run,
// Snapshot, ...) requires the *command.Token the queue hands to a running
// Command. Without a valid token issued by this Network's queue the operation
// fails with NO_CAPABILITY. All graph state is therefore touched by the
// queue's worker goroutine only, and the graph itself carries no locks.
// Callers normally use the Command constructors (AddAlgorithmCommand,
// ConnectCommand, RunNetworkCommand, ...) and commit them.
//
// Data Propagation:
// An Output publishes a value by wrapping it in a fresh package. A
// Connection remembers the last package it transferred and propagates only
// when the source holds a different package. Change detection is by
// identity, never by content: producers must publish a new value instead of
// mutating a published one in place.
//
// Run Pass:
// Run orders the Algorithms topologically (Kahn, ties broken by registration
// order). For each Algorithm it propagates every incoming Connection; if none
// delivered a new package and the Algorithm was not invalidated, Process is
// skipped and its outputs stay untouched.
//
// Construction-time errors (incompatible types, unknown names, cycles) are
// reported as *GraphError and leave the graph unchanged.
package network
