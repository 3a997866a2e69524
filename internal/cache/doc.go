// Package cache persists synthesized sentence audio keyed by a content hash of
// the sentence text. A persistent backend (plain files or SQLite) is fronted
// by an optional in-process LRU so repeated sentences within one run skip the
// filesystem entirely.
//
// Reads are authoritative and writes are best-effort: callers treat a failed
// Put as a lost optimization, never as a failed request.
package cache
