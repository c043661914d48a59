package bindgraph

// BuildGraph assembles a fully populated Graph from a task catalog and a set
// of binding tuples. Duplicate bindings are deduplicated set-wise before
// building. Build-time invariant failures are fatal: no partial graph is
// returned.
func BuildGraph(catalog TaskCatalog, bindings []Binding, rc *RunContext) (*Graph, error) {
	g := newGraph()

	seen := make(map[Binding]bool, len(bindings))
	unique := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		if seen[b] {
			continue
		}
		seen[b] = true
		unique = append(unique, b)
	}

	for _, b := range unique {
		if err := applyBinding(g, catalog, b); err != nil {
			return nil, err
		}
	}

	if err := ValidateIntegrity(g); err != nil {
		return nil, err
	}
	if err := ValidateTypeCompatibility(g); err != nil {
		return nil, err
	}
	return g, nil
}

func applyBinding(g *Graph, catalog TaskCatalog, b Binding) error {
	inTR, err := ParseTaskRef(b.In)
	if err != nil {
		return err
	}
	inMeta, err := resolveTaskRef(catalog, inTR, "in")
	if err != nil {
		return err
	}
	inTaskID := TaskBindingID(inTR.TaskID, inTR.InstanceID)
	inFileType := inMeta.InputTypes[inTR.Index].ID
	inFileID := InFileID(inTR.TaskID, inTR.InstanceID, inTR.Index, inFileType)

	// materializeTask eagerly wires every declared slot, including inFileID
	// and its edge into inTaskID, so no further add is needed here.
	if err := materializeTask(g, inTaskID, inMeta); err != nil {
		return err
	}

	if isEntryRef(b.Out) {
		er, err := ParseEntryRef(b.Out)
		if err != nil {
			return err
		}
		entryID := EntryPointID(er.EntryID, inFileType)
		entryOutID := EntryOutFileID(er.EntryID, inFileType)
		if err := g.AddNode(entryID); err != nil {
			return err
		}
		if err := g.AddNode(entryOutID); err != nil {
			return err
		}
		if err := g.AddEdge(entryID, entryOutID); err != nil {
			return err
		}
		if err := g.AddEdge(entryOutID, inFileID); err != nil {
			return err
		}
		return nil
	}

	outTR, err := ParseTaskRef(b.Out)
	if err != nil {
		return err
	}
	outMeta, err := resolveTaskRef(catalog, outTR, "out")
	if err != nil {
		return err
	}
	outTaskID := TaskBindingID(outTR.TaskID, outTR.InstanceID)
	outFileType := outMeta.OutputTypes[outTR.Index].ID
	outFileID := OutFileID(outTR.TaskID, outTR.InstanceID, outTR.Index, outFileType)

	// Likewise, materializeTask already wires outTaskID -> outFileID.
	if err := materializeTask(g, outTaskID, outMeta); err != nil {
		return err
	}
	if err := g.AddEdge(outFileID, inFileID); err != nil {
		return err
	}
	return nil
}

// materializeTask adds taskID (if new) and eagerly materializes every
// declared input and output file-node slot from meta, wiring them in -- even
// the slots no binding names, so every task always carries its full
// complement of file nodes. Reusing this for a node already present is a no-op
// beyond filling in any slots a prior binding didn't mention.
func materializeTask(g *Graph, taskID NodeID, meta MetaTask) error {
	first := !g.HasNode(taskID)
	if err := g.AddNode(taskID); err != nil {
		return err
	}
	if first {
		g.setMeta(taskID, meta)
		if attrs, ok := g.Task(taskID); ok {
			attrs.NProc = meta.NProc
		}
	}

	for idx, ft := range meta.InputTypes {
		fid := InFileID(taskID.TaskID, taskID.InstanceID, idx, ft.ID)
		if g.HasNode(fid) {
			continue
		}
		if err := g.AddNode(fid); err != nil {
			return err
		}
		if err := g.AddEdge(fid, taskID); err != nil {
			return err
		}
	}
	for idx, ft := range meta.OutputTypes {
		fid := OutFileID(taskID.TaskID, taskID.InstanceID, idx, ft.ID)
		if g.HasNode(fid) {
			continue
		}
		if err := g.AddNode(fid); err != nil {
			return err
		}
		if err := g.AddEdge(taskID, fid); err != nil {
			return err
		}
	}
	return nil
}
