package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bindgraph/internal/bindgraph"
)

// FileType mirrors bindgraph.FileType in YAML-friendly form.
type FileType struct {
	ID       string `yaml:"id"`
	BaseName string `yaml:"baseName"`
	Ext      string `yaml:"ext"`
}

// MetaTask mirrors bindgraph.MetaTask in YAML-friendly form.
type MetaTask struct {
	TaskID          string     `yaml:"taskId"`
	InputTypes      []FileType `yaml:"inputTypes"`
	OutputTypes     []FileType `yaml:"outputTypes"`
	NProc           int        `yaml:"nproc"`
	ClusterTemplate string     `yaml:"clusterTemplate"`
}

// ScatterChunkSpec and GatherChunkSpec mirror their bindgraph counterparts.
type ScatterChunkSpec struct {
	ChunkKey  string `yaml:"chunkKey"`
	TaskInput string `yaml:"taskInput"`
}

type GatherChunkSpec struct {
	ChunkKey     string `yaml:"chunkKey"`
	GatherTaskID string `yaml:"gatherTaskId"`
	TaskInput    string `yaml:"taskInput"`
}

// ChunkOperator mirrors bindgraph.ChunkOperator in YAML-friendly form.
type ChunkOperator struct {
	OperatorID string `yaml:"operatorId"`
	Scatter    struct {
		TaskID        string             `yaml:"taskId"`
		ScatterTaskID string             `yaml:"scatterTaskId"`
		Chunks        []ScatterChunkSpec `yaml:"chunks"`
	} `yaml:"scatter"`
	Gather struct {
		Chunks []GatherChunkSpec `yaml:"chunks"`
	} `yaml:"gather"`
}

// Binding mirrors bindgraph.Binding.
type Binding struct {
	Out string `yaml:"out"`
	In  string `yaml:"in"`
}

// Pipeline is the top-level YAML document: a task catalog, a chunk-operator
// catalog, and a binding set, plus default entry-point paths useful for
// non-interactive `flowbind run` invocations.
type Pipeline struct {
	Name      string            `yaml:"name"`
	Tasks     []MetaTask        `yaml:"tasks"`
	Operators []ChunkOperator   `yaml:"operators"`
	Bindings  []Binding         `yaml:"bindings"`
	Entries   map[string]string `yaml:"entries"`
	OutputDir string            `yaml:"outputDir"`
	RunDir    string            `yaml:"runDir"`
}

// Load reads and parses a pipeline YAML file.
func Load(path string) (*Pipeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var p Pipeline
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &p, nil
}

func toFileTypes(fts []FileType) []bindgraph.FileType {
	out := make([]bindgraph.FileType, len(fts))
	for i, ft := range fts {
		out[i] = bindgraph.FileType{ID: ft.ID, BaseName: ft.BaseName, Ext: ft.Ext}
	}
	return out
}

// Catalog converts the YAML task list into a bindgraph.TaskCatalog.
func (p *Pipeline) Catalog() bindgraph.TaskCatalog {
	catalog := make(bindgraph.TaskCatalog, len(p.Tasks))
	for _, t := range p.Tasks {
		catalog[t.TaskID] = bindgraph.MetaTask{
			TaskID:          t.TaskID,
			InputTypes:      toFileTypes(t.InputTypes),
			OutputTypes:     toFileTypes(t.OutputTypes),
			NProc:           t.NProc,
			ClusterTemplate: t.ClusterTemplate,
		}
	}
	return catalog
}

// ChunkOperators converts the YAML operator list into []bindgraph.ChunkOperator.
func (p *Pipeline) ChunkOperators() []bindgraph.ChunkOperator {
	out := make([]bindgraph.ChunkOperator, len(p.Operators))
	for i, op := range p.Operators {
		scatterChunks := make([]bindgraph.ScatterChunkSpec, len(op.Scatter.Chunks))
		for j, c := range op.Scatter.Chunks {
			scatterChunks[j] = bindgraph.ScatterChunkSpec{ChunkKey: c.ChunkKey, TaskInput: c.TaskInput}
		}
		gatherChunks := make([]bindgraph.GatherChunkSpec, len(op.Gather.Chunks))
		for j, c := range op.Gather.Chunks {
			gatherChunks[j] = bindgraph.GatherChunkSpec{ChunkKey: c.ChunkKey, GatherTaskID: c.GatherTaskID, TaskInput: c.TaskInput}
		}
		out[i] = bindgraph.ChunkOperator{
			OperatorID: op.OperatorID,
			Scatter: bindgraph.ScatterSpec{
				TaskID:        op.Scatter.TaskID,
				ScatterTaskID: op.Scatter.ScatterTaskID,
				Chunks:        scatterChunks,
			},
			Gather: bindgraph.GatherSpec{Chunks: gatherChunks},
		}
	}
	return out
}

// BindingTuples converts the YAML binding list into []bindgraph.Binding.
func (p *Pipeline) BindingTuples() []bindgraph.Binding {
	out := make([]bindgraph.Binding, len(p.Bindings))
	for i, b := range p.Bindings {
		out[i] = bindgraph.Binding{Out: b.Out, In: b.In}
	}
	return out
}
