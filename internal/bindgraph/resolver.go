package bindgraph

import "time"

// ResolveEntry marks every EntryPoint node with the given entryID as
// SUCCESSFUL, resolves its EntryOutBindingFile successor to path, and then
// runs path propagation so downstream BindingInFile nodes pick up the same
// path. Returns ErrInvalidEntryPoint if entryID matches no node.
func ResolveEntry(g *Graph, entryID, path string) error {
	matched := false
	for _, id := range g.order {
		if id.Kind != KindEntryPoint || id.EntryID != entryID {
			continue
		}
		matched = true
		if attrs, ok := g.Task(id); ok {
			attrs.State = StateSuccess
		}
		for _, succ := range g.Successors(id) {
			if succ.Kind != KindEntryOutFile {
				continue
			}
			resolveFile(g, succ, path)
		}
	}
	if !matched {
		return wrapf(ErrInvalidEntryPoint, "%q", entryID)
	}
	PropagatePaths(g)
	return nil
}

func resolveFile(g *Graph, id NodeID, path string) {
	attrs, ok := g.File(id)
	if !ok || attrs.IsResolved {
		return // monotonic: unresolved -> resolved exactly once
	}
	now := time.Now()
	attrs.Path = path
	attrs.IsResolved = true
	attrs.ResolvedAt = &now
}

// PropagatePaths floods (path, isResolved) from every resolved file node to
// its direct file-like successors, to a fixpoint. Idempotent and monotonic:
// a file node transitions unresolved -> resolved at most once.
func PropagatePaths(g *Graph) {
	changed := true
	for changed {
		changed = false
		for _, id := range g.order {
			if !id.IsFileLike() {
				continue
			}
			attrs, ok := g.File(id)
			if !ok || !attrs.IsResolved {
				continue
			}
			for _, succ := range g.Successors(id) {
				if !succ.IsFileLike() {
					continue
				}
				sAttrs, ok := g.File(succ)
				if !ok || sAttrs.IsResolved {
					continue
				}
				resolveFile(g, succ, attrs.Path)
				changed = true
			}
		}
	}
}

// NextRunnable returns the first task-like node, in topological order, whose
// state is CREATED or READY and whose predecessor file nodes are all
// resolved. Ties among equally-ready tasks are broken by insertion order
// (topologicalOrder already reflects that).
func NextRunnable(g *Graph) (NodeID, bool) {
	for _, id := range g.TaskNodes() {
		if id.Kind == KindEntryPoint {
			continue
		}
		attrs, ok := g.Task(id)
		if !ok {
			continue
		}
		if attrs.State != StateCreated && attrs.State != StateReady {
			continue
		}
		if isRunnable(g, id) {
			return id, true
		}
	}
	return NodeID{}, false
}

func isRunnable(g *Graph, id NodeID) bool {
	for _, p := range g.Predecessors(id) {
		if !p.IsFileLike() {
			continue
		}
		attrs, ok := g.File(p)
		if !ok || !attrs.IsResolved {
			return false
		}
	}
	return true
}

// IsWorkflowComplete reports whether every task-like node is terminal and
// every file node is resolved.
//
// A scattered task T is superseded by its TaskScatter/TaskChunked/TaskGather
// descendants; its own output-file slots are never produced
// once WasChunked is set, so they are exempted from the "every file is
// resolved" requirement -- otherwise no scattered workflow could ever
// report complete. See DESIGN.md for this decision.
func IsWorkflowComplete(g *Graph) bool {
	for _, id := range g.TaskNodes() {
		attrs, ok := g.Task(id)
		if !ok || !attrs.State.IsCompleted() {
			return false
		}
	}
	for _, id := range g.FileNodes() {
		attrs, ok := g.File(id)
		if !ok || attrs.IsResolved {
			continue
		}
		if isExemptScatteredOutput(g, id) {
			continue
		}
		return false
	}
	return true
}

func isExemptScatteredOutput(g *Graph, fileID NodeID) bool {
	if fileID.Kind != KindOutFile {
		return false
	}
	for _, p := range g.Predecessors(fileID) {
		if !p.IsTaskLike() {
			continue
		}
		if attrs, ok := g.Task(p); ok && attrs.WasChunked {
			return true
		}
	}
	return false
}

// WasWorkflowSuccessful reports whether every task-like node is SUCCESSFUL.
func WasWorkflowSuccessful(g *Graph) bool {
	for _, id := range g.TaskNodes() {
		attrs, ok := g.Task(id)
		if !ok || attrs.State != StateSuccess {
			return false
		}
	}
	return true
}

// WasTaskSuccessfulWithOutputs reports whether t is SUCCESSFUL and every one
// of its output files is resolved.
func WasTaskSuccessfulWithOutputs(g *Graph, t NodeID) bool {
	attrs, ok := g.Task(t)
	if !ok || attrs.State != StateSuccess {
		return false
	}
	for _, succ := range g.Successors(t) {
		if !succ.IsFileLike() {
			continue
		}
		fa, ok := g.File(succ)
		if !ok || !fa.IsResolved {
			return false
		}
	}
	return true
}

// UpdateState validates s and assigns it to t. Terminal states never revert:
// calling UpdateState on an already-terminal node is a no-op.
func UpdateState(g *Graph, t NodeID, s TaskState) error {
	if !allStates[s] {
		return wrapf(ErrInvalidTaskState, "%q", s)
	}
	attrs, ok := g.Task(t)
	if !ok {
		return wrapf(ErrMalformedBindingGraph, "%s is not a task node", t)
	}
	if attrs.State.IsCompleted() {
		return nil
	}
	attrs.State = s
	return nil
}

// MarkSuccess verifies every path in outputPaths exists (via probe); on any
// miss it leaves t un-transitioned and returns an ErrMissingOutput error
// (the scheduler is expected to then call MarkFailed). On all-present it
// transitions t to SUCCESSFUL, records runtimeSec, resolves each output file
// with the corresponding path, and runs path propagation.
//
// Calling MarkSuccess twice against an already-SUCCESSFUL task is a no-op
// (idempotent only when the first call succeeded, per the ordering
// guarantees).
func MarkSuccess(g *Graph, t NodeID, runtimeSec float64, outputPaths []string, probe FSProbe) error {
	attrs, ok := g.Task(t)
	if !ok {
		return wrapf(ErrMalformedBindingGraph, "%s is not a task node", t)
	}
	if attrs.State.IsCompleted() {
		return nil
	}

	outFiles := make([]NodeID, 0)
	for _, succ := range g.Successors(t) {
		if succ.Kind == KindOutFile || succ.Kind == KindChunkOutFile {
			outFiles = append(outFiles, succ)
		}
	}
	if len(outFiles) != len(outputPaths) {
		return wrapf(ErrMalformedBindingGraph, "%s has %d output slots, got %d paths", t, len(outFiles), len(outputPaths))
	}
	for i, p := range outputPaths {
		if probe != nil && !probe.Exists(p) {
			return wrapf(ErrMissingOutput, "output %d (%s) of %s", i, p, t)
		}
	}

	attrs.State = StateSuccess
	attrs.RuntimeSec = runtimeSec
	g.sortByInsertion(outFiles) // deterministic index<->path pairing
	for i, f := range outFiles {
		resolveFile(g, f, outputPaths[i])
	}
	PropagatePaths(g)
	return nil
}

// MarkFailed transitions t to FAILED and records runtimeSec and msg.
func MarkFailed(g *Graph, t NodeID, runtimeSec float64, msg string) error {
	attrs, ok := g.Task(t)
	if !ok {
		return wrapf(ErrMalformedBindingGraph, "%s is not a task node", t)
	}
	if attrs.State.IsCompleted() {
		return nil
	}
	attrs.State = StateFailed
	attrs.RuntimeSec = runtimeSec
	attrs.ErrorMsg = msg
	return nil
}
