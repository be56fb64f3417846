// Package decision implements the bounded-retry gate state machine.
//
// Given an issue summary and the current refinement iteration it produces one
// of three outcomes: proceed, refinement needed, or escalation needed. The
// iteration ceiling is a hard cutoff guaranteeing termination regardless of
// how many blocking issues remain. Warning and info findings are advisory and
// never participate in the transition rule.
package decision
