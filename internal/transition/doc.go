// Package transition moves particles between groupings in timed batches.
//
// A [Controller] owns an ordered list of [Phase] values. For each phase it
// computes the new link target of every free particle up front, then
// reassigns the links a batch at a time on a loop timer, reheating the
// simulation after every batch. Once the last batch is applied it waits for
// the simulation to come to rest before entering the next phase.
//
// The controller lives on the loop goroutine: Start and Cancel must be
// called from a loop callback or before the loop is driven. Context
// cancellation may happen on any goroutine.
package transition
