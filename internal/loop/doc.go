// Package loop provides a single-threaded cooperative event loop.
//
// Every callback scheduled on a [Loop] runs on the goroutine driving it, one
// at a time, so the code inside callbacks needs no locking. Periodic work is
// registered with [Loop.Every]; one-off work from other goroutines with
// [Loop.Post].
//
// A loop is driven in one of three ways:
//
//   - [Loop.Run]: wall-clock time, until the context ends or the loop closes
//   - [Loop.Advance]: virtual time moved forward by a fixed amount
//   - [Loop.FastForward]: virtual time jumping to the next due timer until
//     nothing is scheduled
//
// [Future] is the one-shot completion handle used to wait for events that
// are resolved from inside loop callbacks.
package loop
