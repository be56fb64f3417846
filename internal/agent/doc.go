// Package agent defines the shared vocabulary for the quality gate:
// agent descriptors, domains, severities, and capability tags.
//
// Domains and severities are closed enumerations with an explicit unknown
// variant, so matching downstream is exact set intersection rather than
// substring heuristics.
package agent
