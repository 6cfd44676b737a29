// Package state implements the serializable state tree used by QueryState
// and the persistence glue.
//
// A State maps keys to string values and keys to nested States. On disk a
// tree is a sequence of lines, one per value:
//
//	algorithms/scale/description=multiplies its input
//	algorithms/scale/process_count=3
//	name=demo
//
// Nested states are flattened into slash-separated path prefixes. The
// encoding is deterministic: each level writes its values sorted by key, then
// its nested states sorted by name.
//
// There is no escaping. A line splits on its first '=', so values may
// contain '=' and '/', but keys may not contain '/', '=', or a newline, and
// values may not contain a newline. Encoding such a tree fails with
// ErrUnrepresentable instead of guessing an escaping scheme.
//
// Keys are normalized to Unicode NFC, so visually identical keys written in
// composed and decomposed form address the same entry.
package state
