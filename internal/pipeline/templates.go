package pipeline

import "bindgraph/internal/bindgraph"

// RegisterBuiltins populates r with a handful of reference pipelines. Each
// is composed from small functions that append a stage's bindings onto the
// ones before it, so a downstream pipeline can reuse an upstream one's core
// and layer more stages on top.
func RegisterBuiltins(r *Registry) {
	r.Register(Template{
		ID:       "bindgraph.pipelines.align",
		Name:     "Align reads to reference",
		Tags:     []string{TagAlignment},
		Bindings: coreAlign(),
	})
	r.Register(Template{
		ID:       "bindgraph.pipelines.align_qc",
		Name:     "Align reads to reference, then QC the alignment",
		Tags:     []string{TagAlignment, TagQC},
		Bindings: coreAlignQC(),
	})
	r.Register(Template{
		ID:       "bindgraph.pipelines.consensus_chunked",
		Name:     "Chunked consensus calling over an aligned BAM",
		Tags:     []string{TagConsensus},
		Bindings: coreConsensusChunked(),
	})
}

// coreAlign is the minimal single-task alignment core: an entry-fed reference
// and an entry-fed subreads set feed a single alignment task.
func coreAlign() []bindgraph.Binding {
	return []bindgraph.Binding{
		mustBind("$entry:e_subreads", "bindgraph.tasks.align:0"),
		mustBind("$entry:e_reference", "bindgraph.tasks.align:1"),
	}
}

// coreAlignQC extends coreAlign with a QC task consuming the alignment's
// output -- the "build on core" composition the core's own bindings follow.
func coreAlignQC() []bindgraph.Binding {
	b := coreAlign()
	return append(b, mustBind("bindgraph.tasks.align:0", "bindgraph.tasks.mapping_stats:0"))
}

// coreConsensusChunked extends coreAlign with a scatter-labelled consensus
// task; the operator catalog (not this package) is what actually turns
// "bindgraph.tasks.consensus" into a scatter/gather subgraph, when the
// scheduler grafts it at run time.
func coreConsensusChunked() []bindgraph.Binding {
	b := coreAlign()
	return append(b,
		mustBind("bindgraph.tasks.align:0", "bindgraph.tasks.consensus:0"),
		mustBind("$entry:e_reference", "bindgraph.tasks.consensus:1"),
	)
}
