package bindgraph

import (
	"regexp"
	"strconv"
)

// Advanced form is tried first so "NS.tasks.T:1:0" is never mistaken for
// simple form with a stray colon.
var (
	reAdvancedTask = regexp.MustCompile(`^([A-Za-z0-9_]+)\.tasks\.([A-Za-z0-9_]+):(\d+):(\d+)$`)
	reSimpleTask   = regexp.MustCompile(`^([A-Za-z0-9_]+)\.tasks\.([A-Za-z0-9_]+):(\d+)$`)
	reEntryRef     = regexp.MustCompile(`^\$entry:([A-Za-z0-9_.\-]+)$`)
)

// TaskRef is the parsed form of a simple or advanced task binding string.
type TaskRef struct {
	Namespace  string
	TaskID     string // dotted: Namespace + ".tasks." + bare id
	InstanceID int
	Index      int
}

// EntryRef is the parsed form of an "$entry:EID" binding string.
type EntryRef struct {
	EntryID string
}

// ParseTaskRef parses s as either the advanced or simple task grammar,
// advanced-first. Returns ErrMalformedBindingStr if neither matches.
func ParseTaskRef(s string) (TaskRef, error) {
	if m := reAdvancedTask.FindStringSubmatch(s); m != nil {
		inst, _ := strconv.Atoi(m[3])
		idx, _ := strconv.Atoi(m[4])
		return TaskRef{
			Namespace:  m[1],
			TaskID:     m[1] + ".tasks." + m[2],
			InstanceID: inst,
			Index:      idx,
		}, nil
	}
	if m := reSimpleTask.FindStringSubmatch(s); m != nil {
		idx, _ := strconv.Atoi(m[3])
		return TaskRef{
			Namespace:  m[1],
			TaskID:     m[1] + ".tasks." + m[2],
			InstanceID: 0,
			Index:      idx,
		}, nil
	}
	return TaskRef{}, wrapf(ErrMalformedBindingStr, "%q matches neither advanced nor simple task grammar", s)
}

// ParseEntryRef parses s as "$entry:EID".
func ParseEntryRef(s string) (EntryRef, error) {
	m := reEntryRef.FindStringSubmatch(s)
	if m == nil {
		return EntryRef{}, wrapf(ErrMalformedBindingStr, "%q is not a valid entry reference", s)
	}
	return EntryRef{EntryID: m[1]}, nil
}

// isEntryRef is a cheap syntactic check used to dispatch Binding.Out without
// committing to a full parse.
func isEntryRef(s string) bool { return reEntryRef.MatchString(s) }

// ParseOutRef parses a binding's "out" side, which is either an entry
// reference or a task-output reference.
func ParseOutRef(s string) (EntryRef, TaskRef, error) {
	if isEntryRef(s) {
		er, err := ParseEntryRef(s)
		return er, TaskRef{}, err
	}
	tr, err := ParseTaskRef(s)
	return EntryRef{}, tr, err
}

// resolveTaskRef looks tr up in the catalog and validates tr.Index against
// the declared arity implied by side ("in" checks InputTypes, "out" checks
// OutputTypes).
func resolveTaskRef(catalog TaskCatalog, tr TaskRef, side string) (MetaTask, error) {
	meta, ok := catalog[tr.TaskID]
	if !ok {
		return MetaTask{}, wrapf(ErrTaskIdNotFound, "%q", tr.TaskID)
	}
	arity := len(meta.InputTypes)
	if side == "out" {
		arity = len(meta.OutputTypes)
	}
	if tr.Index < 0 || tr.Index >= arity {
		return MetaTask{}, wrapf(ErrIndexOutOfRange, "%s index %d out of range for %q (arity %d)", side, tr.Index, tr.TaskID, arity)
	}
	return meta, nil
}
