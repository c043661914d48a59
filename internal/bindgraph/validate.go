package bindgraph

// ValidateIntegrity checks the structural invariants: every task-like node's
// declared input positions have an appropriately-shaped predecessor, output
// files have in-degree exactly 1, and entry points have in-degree 0. It is a
// pure read, safe to call at any point.
func ValidateIntegrity(g *Graph) error {
	for _, id := range g.order {
		switch {
		case id.Kind == KindEntryPoint:
			if g.InDegree(id) != 0 {
				return wrapf(ErrMalformedBindingGraph, "entry point %s has non-zero in-degree", id)
			}
		case id.IsTaskLike():
			if err := validateTaskInputs(g, id); err != nil {
				return err
			}
		case id.Kind == KindOutFile || id.Kind == KindChunkOutFile:
			if g.InDegree(id) != 1 {
				return wrapf(ErrMalformedBindingGraph, "output file %s has in-degree %d, want 1", id, g.InDegree(id))
			}
		case id.Kind == KindInFile || id.Kind == KindChunkInFile:
			if d := g.InDegree(id); d != 0 && d != 1 {
				return wrapf(ErrMalformedBindingGraph, "input file %s has in-degree %d, want 0 or 1", id, d)
			}
		}
	}
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// validateTaskInputs confirms every declared input position i has at least
// one incoming BindingInFile(_, _, i, _) edge attached to id; a second
// in-file at the same position is not reported.
func validateTaskInputs(g *Graph, id NodeID) error {
	meta, ok := g.Meta(id)
	if !ok {
		return nil // no catalog metadata, so no declared inputs to check
	}
	seen := make(map[int]bool)
	for _, p := range g.Predecessors(id) {
		if p.Kind == KindInFile || p.Kind == KindChunkInFile {
			seen[p.Index] = true
		}
	}
	for i := range meta.InputTypes {
		if !seen[i] {
			return wrapf(ErrMalformedBindingGraph, "%s missing input-file predecessor at index %d", id, i)
		}
	}
	return nil
}

// ValidateTypeCompatibility checks that an in-file and its upstream out-file
// carry equal fileType.
func ValidateTypeCompatibility(g *Graph) error {
	for _, id := range g.order {
		if id.Kind != KindInFile && id.Kind != KindChunkInFile {
			continue
		}
		for _, p := range g.Predecessors(id) {
			if !p.IsFileLike() {
				continue
			}
			if p.FileType != id.FileType {
				return wrapf(ErrBindingFileTypeIncompatible, "%s (%s) feeds %s (%s)", p, p.FileType, id, id.FileType)
			}
		}
	}
	return nil
}
