// Package store persists gate artifacts per feature under a single artifact
// root.
//
// Every stage's output is written atomically (temp file plus rename) before
// the next stage runs, so a crash between stages leaves a consistent store
// that a re-run can resume from. Prior artifacts are never mutated; each run
// overwrites stage artifacts wholesale.
package store
