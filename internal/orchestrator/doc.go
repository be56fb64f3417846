// Package orchestrator sequences the quality gate: agent discovery and issue
// aggregation (run concurrently), the bounded-retry decision, and, on a
// refine outcome, agent selection and refinement plan building.
//
// Every stage persists its artifact before the next stage begins, so a crash
// between stages is recoverable from the store. Only store-level failures
// abort a run; content-level anomalies are surfaced as data in the artifacts.
package orchestrator
