// Package plan turns an agent selection into a concrete, dispatchable
// refinement plan.
//
// Each task binds one selected agent to a target domain and an isolated
// workspace namespaced by feature, iteration, agent, and domain, so tasks may
// be dispatched concurrently with no ordering or locking between them.
package plan
