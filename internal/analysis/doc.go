// Package analysis aggregates severity-tagged review artifacts into a
// normalized issue summary: counts per severity, affected domains, and the
// detected technology stack.
//
// Aggregation is a plain sum over artifacts, not a deduplicating set, and it
// is order-independent. Domain detection is a best-effort heuristic over
// artifact names and is a known precision limitation.
package analysis
