package schedule

import (
	"context"
	"fmt"
	"sync"

	"bindgraph/internal/bindgraph"
	"bindgraph/internal/trace"
)

// TaskRunner is the narrow external-collaborator interface the scheduler
// drives: it never touches the graph, only runs one task instance and
// reports what happened.
type TaskRunner interface {
	Run(ctx context.Context, id bindgraph.NodeID, meta bindgraph.MetaTask, inputPaths, outputPaths []string) (runtimeSec float64, err error)
}

// ManifestWaiter blocks until a scatter task's manifest file is visible on
// disk. Executors that submit to a cluster can report success before the
// manifest is visible to the scheduler's filesystem (NFS lag, staging); a
// waiter bridges that gap without busy-polling.
type ManifestWaiter interface {
	Wait(ctx context.Context, path string) error
}

// Config bundles everything a Scheduler needs for one workflow run.
type Config struct {
	Catalog     bindgraph.TaskCatalog
	Operators   []bindgraph.ChunkOperator
	Runner      TaskRunner
	Probe       bindgraph.FSProbe
	Reader      bindgraph.ChunkManifestReader
	Writer      bindgraph.ChunkManifestWriter
	Waiter      ManifestWaiter // optional
	OutputDir   string
	RunDir      string
	Concurrency int
}

// Scheduler is the single owner of a bindgraph.Graph for the duration of
// Run. Graph mutation is never concurrent: dispatched tasks run in parallel
// goroutines, but every call into bindgraph happens on the goroutine running
// Run, serialized by applying worker results one at a time as they arrive.
type Scheduler struct {
	g   *bindgraph.Graph
	rc  *bindgraph.RunContext
	cfg Config
	rec *trace.Recorder

	operatorByScatterTask map[string]bindgraph.ChunkOperator
	scatterOperators      map[bindgraph.NodeID]bindgraph.ChunkOperator
}

// New builds a Scheduler over g, labelling chunkable tasks from cfg's
// operator catalog up front.
func New(g *bindgraph.Graph, rc *bindgraph.RunContext, cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	bindgraph.LabelChunkable(g, cfg.Operators)

	byTask := make(map[string]bindgraph.ChunkOperator, len(cfg.Operators))
	for _, op := range cfg.Operators {
		byTask[op.Scatter.TaskID] = op
	}

	return &Scheduler{
		g:                     g,
		rc:                    rc,
		cfg:                   cfg,
		rec:                   trace.NewRecorder(),
		operatorByScatterTask: byTask,
		scatterOperators:      make(map[bindgraph.NodeID]bindgraph.ChunkOperator),
	}
}

// Result summarizes one completed (or deadlocked) scheduler run.
type Result struct {
	Complete    bool
	Successful  bool
	TraceEvents []trace.TraceEvent

	// TraceHash is the deterministic hash of the canonical execution trace,
	// keyed to the final graph structure. Two runs of the same pipeline with
	// the same outcomes produce the same hash regardless of dispatch timing.
	TraceHash string
}

type taskResult struct {
	id         bindgraph.NodeID
	runtimeSec float64
	outputPath []string
	err        error
}

// Run drives the graph to completion (or to a stuck point with no runnable
// tasks and nothing in flight) and returns the outcome. ctx cancellation
// ends the run at once: results of tasks still in flight are not applied.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.rc.Tracer.Start(ctx, "schedule.run")
	defer span.End()

	var mu sync.Mutex
	doneCh := make(chan taskResult, s.cfg.Concurrency)
	inFlight := make(map[bindgraph.NodeID]bool)

	dispatch := func(id bindgraph.NodeID, meta bindgraph.MetaTask) {
		inputPaths := s.g.TaskInputPaths(id)
		outputPaths, err := bindgraph.AllocateOutputPaths(s.rc, s.cfg.OutputDir, inputPaths, meta.OutputTypes, nil, nil)
		if err != nil {
			doneCh <- taskResult{id: id, err: err}
			return
		}
		go func() {
			runtimeSec, runErr := s.cfg.Runner.Run(ctx, id, meta, inputPaths, outputPaths)
			doneCh <- taskResult{id: id, runtimeSec: runtimeSec, outputPath: outputPaths, err: runErr}
		}()
	}

	for {
		mu.Lock()
		progressed := s.graftReadyGathers()

		for len(inFlight) < s.cfg.Concurrency {
			id, ok := bindgraph.NextRunnable(s.g)
			if !ok {
				break
			}
			meta, ok := s.g.Meta(id)
			if !ok {
				mu.Unlock()
				return nil, fmt.Errorf("schedule: %s has no task metadata", id)
			}
			attrs, _ := s.g.Task(id)

			if id.Kind == bindgraph.KindTaskBinding && attrs != nil && attrs.IsChunkable {
				op, ok := s.operatorByScatterTask[meta.TaskID]
				if !ok {
					mu.Unlock()
					return nil, fmt.Errorf("schedule: %s labelled chunkable but no operator registered", id)
				}
				sNode, err := bindgraph.ScatterGraft(s.g, s.rc, s.cfg.Catalog, id, op)
				if err != nil {
					mu.Unlock()
					return nil, err
				}
				s.scatterOperators[sNode] = op
				trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventScatterGraft, TaskID: id.TaskID, Reason: op.OperatorID})
				progressed = true
				continue
			}

			if err := bindgraph.UpdateState(s.g, id, bindgraph.StateRunning); err != nil {
				mu.Unlock()
				return nil, err
			}
			inFlight[id] = true
			dispatch(id, meta)
			progressed = true
		}
		mu.Unlock()

		if len(inFlight) == 0 {
			if !progressed {
				break
			}
			continue
		}

		select {
		case <-ctx.Done():
			return s.finish(false), ctx.Err()
		case r := <-doneCh:
			mu.Lock()
			delete(inFlight, r.id)
			if err := s.apply(ctx, r); err != nil {
				mu.Unlock()
				return nil, err
			}
			mu.Unlock()
		}
	}

	return s.finish(bindgraph.IsWorkflowComplete(s.g)), nil
}

// apply records the outcome of one completed task under the scheduler's
// exclusive ownership of the graph, then runs the scatter/gather follow-ups
// that depend on it.
func (s *Scheduler) apply(ctx context.Context, r taskResult) error {
	ctx, span := s.rc.Tracer.Start(ctx, "schedule.apply")
	defer span.End()

	if r.err == nil && r.id.Kind == bindgraph.KindTaskScatter && s.cfg.Waiter != nil && len(r.outputPath) > 0 {
		// The executor may report success before the manifest is visible here.
		r.err = s.cfg.Waiter.Wait(ctx, r.outputPath[0])
	}
	if r.err != nil {
		if err := bindgraph.MarkFailed(s.g, r.id, r.runtimeSec, r.err.Error()); err != nil {
			return err
		}
		trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventTaskFailed, TaskID: r.id.TaskID})
		return nil
	}
	if err := bindgraph.MarkSuccess(s.g, r.id, r.runtimeSec, r.outputPath, s.cfg.Probe); err != nil {
		if ferr := bindgraph.MarkFailed(s.g, r.id, r.runtimeSec, err.Error()); ferr != nil {
			return ferr
		}
		trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventTaskFailed, TaskID: r.id.TaskID, Reason: "MissingOutput"})
		return nil // a missing output is a task failure, not a scheduler error
	}
	trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventTaskExecuted, TaskID: r.id.TaskID})

	if r.id.Kind == bindgraph.KindTaskScatter {
		op := s.scatterOperators[r.id]
		if err := bindgraph.ExpandChunks(s.g, s.rc, r.id, op, s.cfg.Reader); err != nil {
			s.failScatter(r.id, err)
			return nil
		}
		trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventChunksExpanded, TaskID: r.id.TaskID})
	}
	return nil
}

// failScatter demotes a scatter node whose manifest turned out unreadable or
// whose gather graft failed. The node is already terminal-successful at this
// point, so MarkFailed would be a no-op; the demotion is written directly.
func (s *Scheduler) failScatter(id bindgraph.NodeID, cause error) {
	if attrs, ok := s.g.Task(id); ok {
		attrs.State = bindgraph.StateFailed
		attrs.ErrorMsg = cause.Error()
	}
	s.rc.Log.WithField("task", id.TaskID).WithError(cause).Warn("scatter/gather rewrite failed")
	trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventTaskFailed, TaskID: id.TaskID, Reason: "ChunkRewriteFailed"})
}

// graftReadyGathers tries GraftGather for every known scatter node; it is a
// no-op for any that aren't ready yet. Returns whether any graft actually
// fired, so the caller's progress check doesn't spin forever on a workflow
// stuck waiting on task execution.
func (s *Scheduler) graftReadyGathers() bool {
	progressed := false
	for sNode, op := range s.scatterOperators {
		attrs, ok := s.g.Task(sNode)
		if !ok || attrs.IsChunkRunning {
			continue
		}
		before := attrs.IsChunkRunning
		if err := bindgraph.GraftGather(s.g, s.rc, s.cfg.Catalog, sNode, op, s.cfg.Reader, s.cfg.Writer, s.cfg.RunDir); err != nil {
			s.failScatter(sNode, err)
			continue
		}
		if attrs.IsChunkRunning != before {
			trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventGatherGraft, TaskID: sNode.TaskID})
			progressed = true
		}
	}
	return progressed
}

func (s *Scheduler) finish(complete bool) *Result {
	tr := s.rec.Trace(s.g.Hash())
	hash, err := tr.Hash()
	if err != nil {
		hash = ""
	}
	return &Result{
		Complete:    complete,
		Successful:  complete && bindgraph.WasWorkflowSuccessful(s.g),
		TraceEvents: s.rec.Snapshot(),
		TraceHash:   hash,
	}
}

// ResolveEntry is a thin pass-through so CLI callers don't need to import
// bindgraph directly just to seed entry points before calling Run.
func (s *Scheduler) ResolveEntry(entryID, path string) error {
	if err := bindgraph.ResolveEntry(s.g, entryID, path); err != nil {
		return err
	}
	trace.SafeRecord(s.rec, trace.TraceEvent{Kind: trace.EventEntryResolved, TaskID: entryID})
	return nil
}
