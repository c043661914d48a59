package cliapp

import (
	"context"
	"fmt"
	"os"

	"bindgraph/internal/bindgraph"
)

// StubRunner is a trivial in-process schedule.TaskRunner: it "runs" a task
// by touching every declared output path into existence. It exists so
// `flowbind run` is usable end to end without wiring a real job scheduler --
// swap in a collaborator that shells out to an actual executor for anything
// beyond smoke-testing a pipeline definition.
type StubRunner struct{}

func (StubRunner) Run(ctx context.Context, id bindgraph.NodeID, meta bindgraph.MetaTask, inputPaths, outputPaths []string) (float64, error) {
	for _, p := range outputPaths {
		f, err := os.Create(p)
		if err != nil {
			return 0, fmt.Errorf("stubrunner: create %s: %w", p, err)
		}
		fmt.Fprintf(f, "produced by %s\n", id)
		if err := f.Close(); err != nil {
			return 0, err
		}
	}
	return 0.01, nil
}

// FSProbe is the real-filesystem bindgraph.FSProbe used outside of tests.
type FSProbe struct{}

func (FSProbe) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
