// Package bindgraph implements the bipartite binding-graph engine at the
// center of the workflow runtime: it turns a set of textual task bindings
// into a typed, validated DAG, resolves it incrementally as tasks complete,
// and rewrites the graph in place to realize scatter/gather chunking.
//
// The package is split by concern:
//
//   - parse.go     binding-string grammar (simple/advanced task refs, entry refs)
//   - nodes.go     node identity: tagged task-like and file-like variants
//   - graph.go     the graph container (backed by dominikbraun/graph) plus
//                  the mutable attribute maps keyed by node identity
//   - builder.go   assembling a graph from a task catalog and a binding set
//   - validate.go  structural integrity and file-type-compatibility checks
//   - resolver.go  path propagation, runnable selection, completion checks
//   - pathalloc.go deterministic output-path allocation
//   - scatter.go   the scatter/gather rewriter
//
// Everything here is synchronous and single-threaded by design: exactly one
// caller owns a *Graph at a time, and all mutation happens through the
// exported functions in this package. Concurrent task execution, caching and
// fault-tolerant resume are the job of callers, not this package.
package bindgraph
