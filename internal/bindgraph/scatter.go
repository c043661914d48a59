package bindgraph

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
)

// LabelChunkable marks every TaskBinding whose metaTask.taskId matches a
// chunk operator's scatter entry as isChunkable, recording operatorId.
func LabelChunkable(g *Graph, operators []ChunkOperator) {
	byTaskID := make(map[string]ChunkOperator, len(operators))
	for _, op := range operators {
		byTaskID[op.Scatter.TaskID] = op
	}
	for _, id := range g.order {
		if id.Kind != KindTaskBinding {
			continue
		}
		meta, ok := g.Meta(id)
		if !ok {
			continue
		}
		op, ok := byTaskID[meta.TaskID]
		if !ok {
			continue
		}
		attrs, ok := g.Task(id)
		if !ok {
			continue
		}
		attrs.IsChunkable = true
		attrs.OperatorID = op.OperatorID
	}
}

// ScatterGraft grafts a TaskScatter node S onto t, when the scheduler
// decides to chunk a labelled task. T is never removed, but it is
// immediately marked SUCCESSFUL and WasChunked so it never becomes runnable
// again -- the real work, and T's eventual output resolution, happens
// through S's chunked/gathered descendants instead (see DESIGN.md).
func ScatterGraft(g *Graph, rc *RunContext, catalog TaskCatalog, t NodeID, operator ChunkOperator) (NodeID, error) {
	scatterMeta, ok := catalog[operator.Scatter.ScatterTaskID]
	if !ok {
		return NodeID{}, wrapf(ErrTaskIdNotFound, "%q", operator.Scatter.ScatterTaskID)
	}
	tAttrs, ok := g.Task(t)
	if !ok {
		return NodeID{}, wrapf(ErrMalformedBindingGraph, "%s is not a task node", t)
	}

	instanceID := rc.NextInstanceID(t.TaskID, KindTaskScatter)
	s := TaskScatterID(scatterMeta.TaskID, t.InstanceID, instanceID)
	if err := g.AddNode(s); err != nil {
		return NodeID{}, err
	}
	g.setMeta(s, scatterMeta)

	for _, p := range g.Predecessors(t) {
		if err := g.AddEdge(p, s); err != nil {
			return NodeID{}, err
		}
	}

	for j, ft := range scatterMeta.OutputTypes {
		outID := OutFileID(scatterMeta.TaskID, instanceID, j, ft.ID)
		if err := g.AddNode(outID); err != nil {
			return NodeID{}, err
		}
		if err := g.AddEdge(s, outID); err != nil {
			return NodeID{}, err
		}
	}

	tAttrs.State = StateSuccess
	tAttrs.WasChunked = true

	if rc != nil {
		rc.logger().WithField("task", t.TaskID).Debug("scatter graft applied")
		recordScatterGraft(rc)
	}
	return s, nil
}

func recordScatterGraft(rc *RunContext) {
	if rc.scatterGrafts == nil {
		return
	}
	rc.scatterGrafts.Add(context.Background(), 1)
}

// ExpandChunks loads the chunk manifest from s's sole output file and
// creates one TaskChunked node per PipelineChunk. It is a no-op if s has
// already been expanded (wasChunked == true).
func ExpandChunks(g *Graph, rc *RunContext, s NodeID, operator ChunkOperator, reader ChunkManifestReader) error {
	sAttrs, ok := g.Task(s)
	if !ok {
		return wrapf(ErrMalformedBindingGraph, "%s is not a task node", s)
	}
	if sAttrs.State != StateSuccess {
		return nil
	}
	if sAttrs.WasChunked {
		return nil // idempotent
	}

	scatterMeta, ok := g.Meta(s)
	if !ok {
		return wrapf(ErrMalformedBindingGraph, "%s has no task metadata", s)
	}

	var manifestPath string
	var scatterOutID NodeID
	for _, succ := range g.Successors(s) {
		if succ.Kind == KindOutFile {
			attrs, ok := g.File(succ)
			if !ok || !attrs.IsResolved {
				return wrapf(ErrMalformedBindingGraph, "%s's manifest output is not yet resolved", s)
			}
			manifestPath = attrs.Path
			scatterOutID = succ
			break
		}
	}
	if manifestPath == "" {
		return wrapf(ErrMalformedBindingGraph, "%s has no output-file slot to carry a chunk manifest", s)
	}

	chunks, err := reader.Read(manifestPath)
	if err != nil {
		return wrapf(ErrMalformedBindingGraph, "reading chunk manifest for %s: %v", s, err)
	}

	children := make([]NodeID, 0, len(chunks))
	for _, c := range chunks {
		instanceID := rc.NextInstanceID(s.TaskID, KindTaskChunked)
		tc := TaskChunkedID(scatterMeta.TaskID, instanceID, c.ChunkID)
		if err := g.AddNode(tc); err != nil {
			return err
		}
		g.setMeta(tc, scatterMeta)

		for _, spec := range operator.Scatter.Chunks {
			inputIndex, ok := parseTrailingIndex(spec.TaskInput)
			if !ok || inputIndex < 0 || inputIndex >= len(scatterMeta.InputTypes) {
				return wrapf(ErrIndexOutOfRange, "scatter chunk spec taskInput %q", spec.TaskInput)
			}
			value, ok := c.Datum[spec.ChunkKey]
			if !ok {
				return wrapf(ErrMissingChunkKey, "%q absent from chunk %q", spec.ChunkKey, c.ChunkID)
			}
			inputType := scatterMeta.InputTypes[inputIndex].ID
			chunkIn := ChunkInFileID(scatterMeta.TaskID, instanceID, inputIndex, inputType, c.ChunkID)
			if err := g.AddNode(chunkIn); err != nil {
				return err
			}
			if err := g.AddEdge(scatterOutID, chunkIn); err != nil {
				return err
			}
			if err := g.AddEdge(chunkIn, tc); err != nil {
				return err
			}
			resolveFile(g, chunkIn, value)
		}

		for j, ft := range scatterMeta.OutputTypes {
			chunkOut := ChunkOutFileID(scatterMeta.TaskID, instanceID, j, ft.ID, c.ChunkID)
			if err := g.AddNode(chunkOut); err != nil {
				return err
			}
			if err := g.AddEdge(tc, chunkOut); err != nil {
				return err
			}
		}
		children = append(children, tc)
	}

	sAttrs.WasChunked = true
	g.scatterChildren[s] = children
	return nil
}

// GraftGather merges the chunked outputs back into the manifest and grafts
// the gather fan-in, once every TaskChunked descendant of s has succeeded
// with outputs. It is latched: calling it again after isChunkRunning is set
// is a no-op.
func GraftGather(g *Graph, rc *RunContext, catalog TaskCatalog, s NodeID, operator ChunkOperator, reader ChunkManifestReader, writer ChunkManifestWriter, runDir string) error {
	sAttrs, ok := g.Task(s)
	if !ok {
		return wrapf(ErrMalformedBindingGraph, "%s is not a task node", s)
	}
	if sAttrs.State != StateSuccess || sAttrs.IsChunkRunning {
		return nil
	}
	children := g.scatterChildren[s]
	if len(children) == 0 {
		return nil
	}
	for _, c := range children {
		if !WasTaskSuccessfulWithOutputs(g, c) {
			return nil // not all chunks done yet
		}
	}

	var manifestPath string
	for _, succ := range g.Successors(s) {
		if succ.Kind == KindOutFile {
			if attrs, ok := g.File(succ); ok {
				manifestPath = attrs.Path
			}
		}
	}
	chunks, err := reader.Read(manifestPath)
	if err != nil {
		return wrapf(ErrMalformedBindingGraph, "re-reading chunk manifest for %s: %v", s, err)
	}
	byChunkID := make(map[string]*PipelineChunk, len(chunks))
	merged := make([]PipelineChunk, len(chunks))
	for i := range chunks {
		merged[i] = PipelineChunk{ChunkID: chunks[i].ChunkID, Datum: copyDatum(chunks[i].Datum)}
		byChunkID[merged[i].ChunkID] = &merged[i]
	}

	allChunkOuts := make([]NodeID, 0)
	for _, tc := range children {
		pc, ok := byChunkID[tc.ChunkID]
		if !ok {
			continue
		}
		for _, succ := range g.Successors(tc) {
			if succ.Kind != KindChunkOutFile {
				continue
			}
			allChunkOuts = append(allChunkOuts, succ)
			// The gather spec is indexed by the chunked task's output position.
			if succ.Index >= len(operator.Gather.Chunks) {
				continue
			}
			fa, ok := g.File(succ)
			if !ok {
				continue
			}
			pc.Datum[operator.Gather.Chunks[succ.Index].ChunkKey] = fa.Path
		}
	}

	mergedPath := filepath.Join(runDir, "gathered-pipeline.chunks.json")
	if err := writer.Write(mergedPath, merged, "gathered output of "+s.TaskID); err != nil {
		return wrapf(ErrMalformedBindingGraph, "writing merged chunk manifest: %v", err)
	}

	for _, gc := range operator.Gather.Chunks {
		gatherMeta, ok := catalog[gc.GatherTaskID]
		if !ok {
			return wrapf(ErrTaskIdNotFound, "%q", gc.GatherTaskID)
		}
		if len(gatherMeta.InputTypes) == 0 {
			return wrapf(ErrMalformedBindingGraph, "gather task %q declares no input slot", gc.GatherTaskID)
		}

		gi := rc.NextInstanceID(gc.GatherTaskID, KindTaskGather)
		G := TaskGatherID(gc.GatherTaskID, gi, gc.ChunkKey)
		if err := g.AddNode(G); err != nil {
			return err
		}
		g.setMeta(G, gatherMeta)

		// A gather task carries exactly one input and one output, both at
		// position 0. gc.TaskInput's trailing index mirrors the scattered
		// task's output slot; it never positions the gather task's own
		// file slots.
		inFileType := gatherMeta.InputTypes[0].ID
		inFile := InFileID(gc.GatherTaskID, gi, 0, inFileType)
		if err := g.AddNode(inFile); err != nil {
			return err
		}
		if err := g.AddEdge(inFile, G); err != nil {
			return err
		}
		resolveFile(g, inFile, mergedPath)

		for _, chunkOut := range allChunkOuts {
			if err := g.AddEdge(chunkOut, inFile); err != nil {
				return err
			}
		}

		if len(gatherMeta.OutputTypes) > 0 {
			outFileType := gatherMeta.OutputTypes[0].ID
			outFile := OutFileID(gc.GatherTaskID, gi, 0, outFileType)
			if err := g.AddNode(outFile); err != nil {
				return err
			}
			if err := g.AddEdge(G, outFile); err != nil {
				return err
			}
		}
	}

	sAttrs.IsChunkRunning = true
	return nil
}

func copyDatum(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// parseTrailingIndex parses the trailing ":INDEX" suffix of a "taskId:INDEX"
// string; only the trailing index is meaningful here.
func parseTrailingIndex(taskInput string) (int, bool) {
	i := strings.LastIndex(taskInput, ":")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(taskInput[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
