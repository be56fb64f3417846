// Package registry discovers agent descriptors from a descriptor store and
// indexes them by domain and capability for selection.
//
// Discovery is best-effort: individual malformed descriptors are skipped with
// a warning and surfaced in the index, while an unreadable store is fatal.
// An empty store is valid and yields an empty index.
package registry
