// Package netdef loads network descriptions from YAML and builds them on a
// network.Network.
//
// A description names algorithms by kind (see algorithms.Registry), links
// them with "algorithm.connector" endpoints, and lists datasets to load into
// dataset sources:
//
//	name: demo
//	algorithms:
//	  - {name: fibers, kind: dataset}
//	  - {name: count, kind: line-count}
//	connections:
//	  - {from: fibers.dataset, to: count.dataset}
//	datasets:
//	  - {path: fibers.txt, into: fibers}
//
// Documents are decoded strictly (unknown fields are errors), checked
// against a CUE schema, then validated semantically.
package netdef
