package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindgraph/internal/bindgraph"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	tpl, ok := r.Lookup("bindgraph.pipelines.align")
	require.True(t, ok)
	assert.Equal(t, "Align reads to reference", tpl.Name)
	assert.Len(t, tpl.Bindings, 2)

	_, ok = r.Lookup("bindgraph.pipelines.unknown")
	assert.False(t, ok)
}

func TestRegistry_AllSortedByID(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	all := r.All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestRegistry_ByTag(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	alignment := r.ByTag(TagAlignment)
	assert.Len(t, alignment, 2)
	consensus := r.ByTag(TagConsensus)
	require.Len(t, consensus, 1)
	assert.Equal(t, "bindgraph.pipelines.consensus_chunked", consensus[0].ID)
	assert.Empty(t, r.ByTag("no-such-tag"))
}

func TestRegistry_CompositionReusesCore(t *testing.T) {
	// align_qc layers one stage on top of align; the shared prefix must be
	// the align core verbatim.
	r := NewRegistry()
	RegisterBuiltins(r)

	align, _ := r.Lookup("bindgraph.pipelines.align")
	qc, _ := r.Lookup("bindgraph.pipelines.align_qc")
	require.Greater(t, len(qc.Bindings), len(align.Bindings))
	assert.Equal(t, align.Bindings, qc.Bindings[:len(align.Bindings)])
}

func TestBuiltinTemplates_BuildAgainstCatalog(t *testing.T) {
	fasta := bindgraph.FileType{ID: "fasta", BaseName: "reads", Ext: "fasta"}
	bam := bindgraph.FileType{ID: "bam", BaseName: "aligned", Ext: "bam"}
	report := bindgraph.FileType{ID: "report", BaseName: "stats", Ext: "json"}
	catalog := bindgraph.TaskCatalog{
		"bindgraph.tasks.align": {
			TaskID:      "bindgraph.tasks.align",
			InputTypes:  []bindgraph.FileType{fasta, fasta},
			OutputTypes: []bindgraph.FileType{bam},
		},
		"bindgraph.tasks.mapping_stats": {
			TaskID:      "bindgraph.tasks.mapping_stats",
			InputTypes:  []bindgraph.FileType{bam},
			OutputTypes: []bindgraph.FileType{report},
		},
		"bindgraph.tasks.consensus": {
			TaskID:      "bindgraph.tasks.consensus",
			InputTypes:  []bindgraph.FileType{bam, fasta},
			OutputTypes: []bindgraph.FileType{fasta},
		},
	}

	r := NewRegistry()
	RegisterBuiltins(r)
	for _, tpl := range r.All() {
		_, err := bindgraph.BuildGraph(catalog, tpl.Bindings, bindgraph.NewRunContext())
		require.NoError(t, err, "template %s must build cleanly", tpl.ID)
	}
}
