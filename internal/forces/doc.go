// Package forces holds the per-step force model of the layout simulation.
//
// A [Composer] keeps an ordered list of named forces and constraints. Forces
// produce an acceleration for each free particle from a shared snapshot
// ([Env]); their sum is added to the particle's velocity by the integrator.
// Constraints run after positions are integrated and correct them in place.
//
// Anchors never receive forces and are never moved by a constraint.
package forces
