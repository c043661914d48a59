package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindgraph/internal/bindgraph"
	"bindgraph/internal/chunkio"
)

// touchRunner creates every declared output path as an empty file and
// reports success -- enough to drive MarkSuccess's existence probe.
type touchRunner struct{}

func (touchRunner) Run(ctx context.Context, id bindgraph.NodeID, meta bindgraph.MetaTask, inputPaths, outputPaths []string) (float64, error) {
	for _, p := range outputPaths {
		if err := os.WriteFile(p, []byte("ok"), 0o644); err != nil {
			return 0, err
		}
	}
	return 0.5, nil
}

type realProbe struct{}

func (realProbe) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestScheduler_DrivesLinearPipelineToCompletion(t *testing.T) {
	dir := t.TempDir()
	catalog := bindgraph.TaskCatalog{
		"ns.tasks.t1": {
			TaskID:      "ns.tasks.t1",
			InputTypes:  []bindgraph.FileType{{ID: "fasta", BaseName: "reads", Ext: "fasta"}},
			OutputTypes: []bindgraph.FileType{{ID: "bam", BaseName: "aligned", Ext: "bam"}},
		},
		"ns.tasks.t2": {
			TaskID:      "ns.tasks.t2",
			InputTypes:  []bindgraph.FileType{{ID: "bam", BaseName: "aligned", Ext: "bam"}},
			OutputTypes: []bindgraph.FileType{{ID: "gff", BaseName: "annot", Ext: "gff"}},
		},
	}
	bindings := []bindgraph.Binding{
		{Out: "$entry:e1", In: "ns.tasks.t1:0"},
		{Out: "ns.tasks.t1:0", In: "ns.tasks.t2:0"},
	}
	rc := bindgraph.NewRunContext()
	g, err := bindgraph.BuildGraph(catalog, bindings, rc)
	require.NoError(t, err)

	manifest := chunkio.JSONManifest{}
	sched := New(g, rc, Config{
		Catalog:     catalog,
		Runner:      touchRunner{},
		Probe:       realProbe{},
		Reader:      manifest,
		Writer:      manifest,
		OutputDir:   dir,
		RunDir:      dir,
		Concurrency: 2,
	})

	require.NoError(t, sched.ResolveEntry("e1", filepath.Join(dir, "in.fasta")))

	result, err := sched.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.True(t, result.Successful)
	assert.NotEmpty(t, result.TraceEvents)
}

func TestScheduler_TaskFailureStopsDownstream(t *testing.T) {
	dir := t.TempDir()
	catalog := bindgraph.TaskCatalog{
		"ns.tasks.t1": {
			TaskID:      "ns.tasks.t1",
			InputTypes:  []bindgraph.FileType{{ID: "fasta", BaseName: "reads", Ext: "fasta"}},
			OutputTypes: []bindgraph.FileType{{ID: "bam", BaseName: "aligned", Ext: "bam"}},
		},
		"ns.tasks.t2": {
			TaskID:      "ns.tasks.t2",
			InputTypes:  []bindgraph.FileType{{ID: "bam", BaseName: "aligned", Ext: "bam"}},
			OutputTypes: []bindgraph.FileType{{ID: "gff", BaseName: "annot", Ext: "gff"}},
		},
	}
	bindings := []bindgraph.Binding{
		{Out: "$entry:e1", In: "ns.tasks.t1:0"},
		{Out: "ns.tasks.t1:0", In: "ns.tasks.t2:0"},
	}
	rc := bindgraph.NewRunContext()
	g, err := bindgraph.BuildGraph(catalog, bindings, rc)
	require.NoError(t, err)

	manifest := chunkio.JSONManifest{}
	sched := New(g, rc, Config{
		Catalog: catalog,
		Runner: runnerFunc(func(ctx context.Context, id bindgraph.NodeID, meta bindgraph.MetaTask, inputPaths, outputPaths []string) (float64, error) {
			return 0, fmt.Errorf("boom")
		}),
		Probe:       realProbe{},
		Reader:      manifest,
		Writer:      manifest,
		OutputDir:   dir,
		RunDir:      dir,
		Concurrency: 1,
	})
	require.NoError(t, sched.ResolveEntry("e1", filepath.Join(dir, "in.fasta")))

	result, err := sched.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Complete)
	assert.False(t, result.Successful)
}

type runnerFunc func(ctx context.Context, id bindgraph.NodeID, meta bindgraph.MetaTask, inputPaths, outputPaths []string) (float64, error)

func (f runnerFunc) Run(ctx context.Context, id bindgraph.NodeID, meta bindgraph.MetaTask, inputPaths, outputPaths []string) (float64, error) {
	return f(ctx, id, meta, inputPaths, outputPaths)
}
