package cliapp

import (
	"fmt"
	"strings"

	"bindgraph/internal/bindgraph"
)

// RenderDOT emits a Graphviz DOT rendering of g: task nodes as boxes, file
// nodes as ellipses, colored by resolution/completion state.
func RenderDOT(g *bindgraph.Graph) string {
	var b strings.Builder
	b.WriteString("digraph bindgraph {\n")
	b.WriteString("  rankdir=LR;\n")

	for _, id := range g.TaskNodes() {
		attrs, _ := g.Task(id)
		color := "lightgray"
		if attrs != nil {
			switch attrs.State {
			case bindgraph.StateSuccess:
				color = "palegreen"
			case bindgraph.StateFailed, bindgraph.StateKilled:
				color = "salmon"
			case bindgraph.StateRunning, bindgraph.StateSubmitted:
				color = "lightyellow"
			}
		}
		fmt.Fprintf(&b, "  %q [shape=box,style=filled,fillcolor=%s,label=%q];\n", nodeKey(id), color, id.String())
	}
	for _, id := range g.FileNodes() {
		attrs, _ := g.File(id)
		color := "white"
		if attrs != nil && attrs.IsResolved {
			color = "lightblue"
		}
		fmt.Fprintf(&b, "  %q [shape=ellipse,style=filled,fillcolor=%s,label=%q];\n", nodeKey(id), color, id.String())
	}

	seen := make(map[string]bool)
	emitEdges := func(id bindgraph.NodeID) {
		for _, succ := range g.Successors(id) {
			key := nodeKey(id) + "->" + nodeKey(succ)
			if seen[key] {
				continue
			}
			seen[key] = true
			fmt.Fprintf(&b, "  %q -> %q;\n", nodeKey(id), nodeKey(succ))
		}
	}
	for _, id := range g.TaskNodes() {
		emitEdges(id)
	}
	for _, id := range g.FileNodes() {
		emitEdges(id)
	}

	b.WriteString("}\n")
	return b.String()
}

func nodeKey(id bindgraph.NodeID) string { return id.String() }
