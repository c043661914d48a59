// Package pipeline is the template registry: named, tagged collections of
// bindgraph.Binding that a CLI or other driver can hand to bindgraph.BuildGraph
// wholesale, instead of requiring every caller to hand-assemble bindings.
// It sits outside the graph engine itself, as the first external
// collaborator: it only produces binding lists, never touches a graph.
package pipeline
