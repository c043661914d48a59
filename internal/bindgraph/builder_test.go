package bindgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastaType() FileType { return FileType{ID: "fasta", BaseName: "reads", Ext: "fasta"} }
func gffType() FileType   { return FileType{ID: "gff", BaseName: "annot", Ext: "gff"} }

func linearCatalog() TaskCatalog {
	return TaskCatalog{
		"ns.tasks.t1": {
			TaskID:      "ns.tasks.t1",
			InputTypes:  []FileType{fastaType()},
			OutputTypes: []FileType{fastaType()},
		},
		"ns.tasks.t2": {
			TaskID:      "ns.tasks.t2",
			InputTypes:  []FileType{fastaType()},
			OutputTypes: []FileType{fastaType()},
		},
	}
}

func TestBuildGraph_LinearTwoTaskPipeline(t *testing.T) {
	catalog := linearCatalog()
	bindings := []Binding{
		{Out: "$entry:e1", In: "ns.tasks.t1:0"},
		{Out: "ns.tasks.t1:0", In: "ns.tasks.t2:0"},
	}
	rc := NewRunContext()

	g, err := BuildGraph(catalog, bindings, rc)
	require.NoError(t, err)

	summary := g.Summarize()
	assert.Equal(t, 1, summary.EntryPoints)
	assert.Equal(t, 3, summary.Tasks) // entry point + t1 + t2
	// entry-out, t1-in, t1-out, t2-in, t2-out: every declared slot is
	// eagerly materialized, not just the ones a binding names.
	assert.Equal(t, 5, summary.Files)

	t1 := TaskBindingID("ns.tasks.t1", 0)
	t2 := TaskBindingID("ns.tasks.t2", 0)
	require.True(t, g.HasNode(t1))
	require.True(t, g.HasNode(t2))

	_, runnable := NextRunnable(g)
	assert.False(t, runnable, "nothing runnable before any entry resolves")

	require.NoError(t, ResolveEntry(g, "e1", "/p/in.fasta"))

	next, ok := NextRunnable(g)
	require.True(t, ok)
	assert.Equal(t, t1, next)

	require.NoError(t, MarkSuccess(g, t1, 1.0, []string{"/p/t1.out"}, alwaysExists{}))

	next, ok = NextRunnable(g)
	require.True(t, ok)
	assert.Equal(t, t2, next)

	require.NoError(t, MarkSuccess(g, t2, 1.0, []string{"/p/t2.out"}, alwaysExists{}))

	assert.True(t, IsWorkflowComplete(g))
	assert.True(t, WasWorkflowSuccessful(g))
}

type alwaysExists struct{}

func (alwaysExists) Exists(string) bool { return true }

type neverExists struct{}

func (neverExists) Exists(string) bool { return false }

func TestMarkSuccess_MissingOutputBouncesToFailed(t *testing.T) {
	catalog := linearCatalog()
	bindings := []Binding{
		{Out: "$entry:e1", In: "ns.tasks.t1:0"},
		{Out: "ns.tasks.t1:0", In: "ns.tasks.t2:0"},
	}
	rc := NewRunContext()
	g, err := BuildGraph(catalog, bindings, rc)
	require.NoError(t, err)

	require.NoError(t, ResolveEntry(g, "e1", "/p/in.fasta"))
	t1 := TaskBindingID("ns.tasks.t1", 0)

	err = MarkSuccess(g, t1, 1.0, []string{"/missing"}, neverExists{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingOutput))
	require.NoError(t, MarkFailed(g, t1, 1.0, err.Error()))

	attrs, ok := g.Task(t1)
	require.True(t, ok)
	assert.Equal(t, StateFailed, attrs.State)

	_, runnable := NextRunnable(g)
	assert.False(t, runnable)
	assert.False(t, IsWorkflowComplete(g))
}

func TestBuildGraph_TypeMismatchRejected(t *testing.T) {
	catalog := TaskCatalog{
		"ns.tasks.producer": {
			TaskID:      "ns.tasks.producer",
			OutputTypes: []FileType{fastaType()},
		},
		"ns.tasks.consumer": {
			TaskID:     "ns.tasks.consumer",
			InputTypes: []FileType{gffType()},
		},
	}
	bindings := []Binding{
		{Out: "ns.tasks.producer:0", In: "ns.tasks.consumer:0"},
	}
	_, err := BuildGraph(catalog, bindings, NewRunContext())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBindingFileTypeIncompatible))
}

func TestBuildGraph_AdvancedFormInstancing(t *testing.T) {
	catalog := TaskCatalog{
		"ns.tasks.t1": {TaskID: "ns.tasks.t1", OutputTypes: []FileType{fastaType()}},
		"ns.tasks.t2": {TaskID: "ns.tasks.t2", InputTypes: []FileType{fastaType()}},
	}
	bindings := []Binding{
		{Out: "ns.tasks.t1:1:0", In: "ns.tasks.t2:0"},
	}
	g, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)

	assert.True(t, g.HasNode(TaskBindingID("ns.tasks.t1", 1)))
	assert.False(t, g.HasNode(TaskBindingID("ns.tasks.t1", 0)), "instance 1 must not be conflated with instance 0")
}

func TestBuildGraph_DuplicateBindingsDeduplicated(t *testing.T) {
	catalog := linearCatalog()
	bindings := []Binding{
		{Out: "$entry:e1", In: "ns.tasks.t1:0"},
		{Out: "ns.tasks.t1:0", In: "ns.tasks.t2:0"},
		{Out: "ns.tasks.t1:0", In: "ns.tasks.t2:0"}, // exact duplicate
	}
	gDup, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)

	unique := []Binding{bindings[0], bindings[1]}
	gUnique, err := BuildGraph(catalog, unique, NewRunContext())
	require.NoError(t, err)

	assert.Equal(t, gUnique.Summarize(), gDup.Summarize())
}

func TestBuildGraph_EagerlyMaterializesAllDeclaredSlots(t *testing.T) {
	// A binding naming only one of two inputs must still materialize the
	// other input slot, so the validator sees every declared position.
	catalog := TaskCatalog{
		"ns.tasks.align": {
			TaskID:      "ns.tasks.align",
			InputTypes:  []FileType{fastaType(), fastaType()},
			OutputTypes: []FileType{fastaType()},
		},
	}
	bindings := []Binding{
		{Out: "$entry:e1", In: "ns.tasks.align:0"},
	}
	g, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)

	other := InFileID("ns.tasks.align", 0, 1, "fasta")
	assert.True(t, g.HasNode(other))
	assert.Equal(t, 0, g.InDegree(other))
}

func TestValidateIntegrity_MissingInputSlotRejected(t *testing.T) {
	g := newGraph()
	task := TaskBindingID("ns.tasks.t1", 0)
	require.NoError(t, g.AddNode(task))
	g.setMeta(task, MetaTask{TaskID: "ns.tasks.t1", InputTypes: []FileType{fastaType()}})

	err := ValidateIntegrity(g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBindingGraph))
}

func TestGraph_RejectsTaskToTaskEdge(t *testing.T) {
	g := newGraph()
	a := TaskBindingID("ns.tasks.a", 0)
	b := TaskBindingID("ns.tasks.b", 0)
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(b))

	err := g.AddEdge(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBindingGraph))
}

func TestGraph_AllowsFileToFileEdge(t *testing.T) {
	// The builder wires outFile -> inFile as a direct file-file edge.
	g := newGraph()
	out := OutFileID("ns.tasks.a", 0, 0, "fasta")
	in := InFileID("ns.tasks.b", 0, 0, "fasta")
	require.NoError(t, g.AddNode(out))
	require.NoError(t, g.AddNode(in))

	assert.NoError(t, g.AddEdge(out, in))
}

func TestGraph_RejectsUnknownNodeKind(t *testing.T) {
	g := newGraph()
	bad := NodeID{Kind: NodeKind(999)}
	err := g.AddNode(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBindingGraph))
}

func TestGraph_AcyclicityEnforced(t *testing.T) {
	g := newGraph()
	a := TaskBindingID("ns.tasks.a", 0)
	fOut := OutFileID("ns.tasks.a", 0, 0, "fasta")
	fIn := InFileID("ns.tasks.a", 0, 1, "fasta")
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(fOut))
	require.NoError(t, g.AddNode(fIn))
	require.NoError(t, g.AddEdge(a, fOut))
	require.NoError(t, g.AddEdge(fOut, fIn))

	err := g.AddEdge(fIn, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleDetected))
}

func TestResolveEntry_UnknownEntryID(t *testing.T) {
	catalog := linearCatalog()
	bindings := []Binding{{Out: "$entry:e1", In: "ns.tasks.t1:0"}}
	g, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)

	err = ResolveEntry(g, "does-not-exist", "/p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidEntryPoint))
}

func TestMarkSuccess_IdempotentAfterSuccess(t *testing.T) {
	catalog := linearCatalog()
	bindings := []Binding{{Out: "$entry:e1", In: "ns.tasks.t1:0"}}
	g, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)
	require.NoError(t, ResolveEntry(g, "e1", "/p/in.fasta"))

	t1 := TaskBindingID("ns.tasks.t1", 0)
	require.NoError(t, MarkSuccess(g, t1, 1.0, []string{"/p/out"}, alwaysExists{}))
	// Second call is a no-op; must not error and must not revert/re-time the task.
	require.NoError(t, MarkSuccess(g, t1, 99.0, []string{"/p/out"}, alwaysExists{}))

	attrs, _ := g.Task(t1)
	assert.Equal(t, 1.0, attrs.RuntimeSec)
}

func TestTopologicalOrder_DeterministicTies(t *testing.T) {
	catalog := TaskCatalog{
		"ns.tasks.a": {TaskID: "ns.tasks.a", InputTypes: []FileType{fastaType()}},
		"ns.tasks.b": {TaskID: "ns.tasks.b", InputTypes: []FileType{fastaType()}},
	}
	bindings := []Binding{
		{Out: "$entry:ea", In: "ns.tasks.a:0"},
		{Out: "$entry:eb", In: "ns.tasks.b:0"},
	}
	g1, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)
	g2, err := BuildGraph(catalog, bindings, NewRunContext())
	require.NoError(t, err)

	order1, err := g1.TopologicalOrder()
	require.NoError(t, err)
	order2, err := g2.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, order1, order2)
}
