// Package algorithms provides small built-in Algorithms and a Registry that
// builds them by kind name. Network descriptions (package netdef) refer to
// these kinds.
package algorithms
