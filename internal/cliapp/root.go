// Package cliapp wires the cobra command tree for the flowbind binary: build
// (parse + validate), run (drive the scheduler to completion), graph
// (render DOT), and templates (list the built-in pipeline registry). It is
// the thin glue between internal/config, internal/bindgraph, and
// internal/schedule -- no domain logic lives here.
package cliapp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bindgraph/internal/bindgraph"
	"bindgraph/internal/chunkio"
	"bindgraph/internal/config"
	"bindgraph/internal/pipeline"
	"bindgraph/internal/schedule"
)

// NewRootCmd builds the flowbind command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowbind",
		Short: "flowbind builds and runs bipartite binding-graph pipelines",
	}
	root.AddCommand(newBuildCmd(), newRunCmd(), newGraphCmd(), newTemplatesCmd())
	return root
}

// manifestWaiter adapts chunkio.WaitForManifest to schedule.ManifestWaiter,
// bounding each wait so a runner that lied about producing its manifest
// can't hang the scheduler.
type manifestWaiter struct{}

func (manifestWaiter) Wait(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return chunkio.WaitForManifest(ctx, path)
}

func newTemplatesCmd() *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the built-in pipeline templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := pipeline.NewRegistry()
			pipeline.RegisterBuiltins(reg)
			templates := reg.All()
			if tag != "" {
				templates = reg.ByTag(tag)
			}
			for _, t := range templates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, strings.Join(t.Tags, ","), t.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only list templates carrying this tag")
	return cmd
}

func loadGraph(path string) (*config.Pipeline, *bindgraph.Graph, *bindgraph.RunContext, error) {
	pl, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	rc := bindgraph.NewRunContext()
	g, err := bindgraph.BuildGraph(pl.Catalog(), pl.BindingTuples(), rc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build graph: %w", err)
	}
	return pl, g, rc, nil
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <pipeline.yaml>",
		Short: "Parse a pipeline definition, build its binding graph, and validate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}
			if err := bindgraph.ValidateIntegrity(g); err != nil {
				return fmt.Errorf("integrity: %w", err)
			}
			if err := bindgraph.ValidateTypeCompatibility(g); err != nil {
				return fmt.Errorf("type compatibility: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), g.Summarize().String())
			return nil
		},
	}
}

func newGraphCmd() *cobra.Command {
	var dot bool
	cmd := &cobra.Command{
		Use:   "graph <pipeline.yaml>",
		Short: "Render the pipeline's binding graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}
			if !dot {
				return fmt.Errorf("graph: only --dot rendering is supported")
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderDOT(g))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "emit Graphviz DOT")
	return cmd
}

func newRunCmd() *cobra.Command {
	var entries []string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Drive a pipeline's binding graph to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, g, rc, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			manifest := chunkio.JSONManifest{}
			sched := schedule.New(g, rc, schedule.Config{
				Catalog:     pl.Catalog(),
				Operators:   pl.ChunkOperators(),
				Runner:      StubRunner{},
				Probe:       FSProbe{},
				Reader:      manifest,
				Writer:      manifest,
				Waiter:      manifestWaiter{},
				OutputDir:   pl.OutputDir,
				RunDir:      pl.RunDir,
				Concurrency: concurrency,
			})

			seeds := pl.Entries
			if seeds == nil {
				seeds = map[string]string{}
			}
			for _, kv := range entries {
				id, path, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--entry expects id=path, got %q", kv)
				}
				seeds[id] = path
			}
			for id, path := range seeds {
				if err := sched.ResolveEntry(id, path); err != nil {
					return fmt.Errorf("resolve entry %s: %w", id, err)
				}
			}

			result, err := sched.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "complete=%v successful=%v events=%d trace=%s\n",
				result.Complete, result.Successful, len(result.TraceEvents), result.TraceHash)
			if !result.Successful {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&entries, "entry", nil, "entry point seed as id=path, repeatable")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum tasks dispatched in parallel")
	return cmd
}
