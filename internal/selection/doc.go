// Package selection matches affected domains against the agent registry
// index and tracks per-domain coverage.
//
// Selection is deterministic: domains are visited in alphabetical order and
// ties between candidates are broken by registry load order, so identical
// inputs always yield an identical selection. A domain with no matching agent
// is a coverage gap, surfaced in the result rather than treated as an error.
package selection
