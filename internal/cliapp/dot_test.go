package cliapp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindgraph/internal/bindgraph"
)

func TestRenderDOT_EmitsEveryNodeAndEdge(t *testing.T) {
	catalog := bindgraph.TaskCatalog{
		"ns.tasks.t1": {
			TaskID:      "ns.tasks.t1",
			InputTypes:  []bindgraph.FileType{{ID: "fasta", BaseName: "reads", Ext: "fasta"}},
			OutputTypes: []bindgraph.FileType{{ID: "bam", BaseName: "aligned", Ext: "bam"}},
		},
	}
	bindings := []bindgraph.Binding{{Out: "$entry:e1", In: "ns.tasks.t1:0"}}
	g, err := bindgraph.BuildGraph(catalog, bindings, bindgraph.NewRunContext())
	require.NoError(t, err)

	dot := RenderDOT(g)
	assert.Contains(t, dot, "digraph bindgraph")
	assert.Contains(t, dot, "TaskBinding(ns.tasks.t1:0)")
	assert.Contains(t, dot, "EntryPoint(e1)")
	assert.Contains(t, dot, "->")

	summary := g.Summarize()
	assert.Equal(t, summary.Edges, countEdges(dot))
}

func countEdges(dot string) int {
	return bytes.Count([]byte(dot), []byte(" -> "))
}

func TestTemplatesCmd_ListsBuiltinsFilteredByTag(t *testing.T) {
	cmd := newTemplatesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Flags().Set("tag", "consensus"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "bindgraph.pipelines.consensus_chunked")
	assert.NotContains(t, out.String(), "bindgraph.pipelines.align_qc")
}
