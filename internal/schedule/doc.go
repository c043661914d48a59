// Package schedule is the single scheduler that owns a bindgraph.Graph for
// the lifetime of one workflow run: it ticks the resolver, dispatches
// runnable tasks to an injected TaskRunner, applies scatter/gather grafts,
// and records a canonical execution trace. It is the one piece of this
// module that is allowed to call bindgraph's mutating functions -- matching
// the "single scheduler owns the graph" concurrency model the core assumes.
package schedule
