// Package dynamo provides the core primitives of the layout simulation.
//
// The package defines the particle and link records shared by every other
// part of the engine:
//
//   - [Particle]: an anchor (fixed grouping target) or a free particle
//   - [Store]: the particle store, anchors first, creation order
//   - [Link]: a constraint edge from a free particle to an anchor key
//   - [LinkTable]: the mutable link set, re-targeted in atomic batches
//
// # Example
//
//	st := dynamo.NewStore()
//	st.CreateAnchor("init", r2.Vec{X: 0, Y: -200})
//	st.CreateFree("bee", "Brazil", r2.Vec{X: 3, Y: -198})
//	links, _ := dynamo.NewLinkTable(st, "init", 1, 0)
//	_ = links.SetTargets(map[dynamo.LinkID]string{0: "init"})
//
// # Thread Safety
//
// Store is NOT thread-safe; it is owned by the simulation loop. LinkTable
// guards its links with a lock and hands out copies, so batch writes are
// serialized against the reads of an integration step.
package dynamo
