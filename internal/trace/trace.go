package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ExecutionTrace is the canonical, deterministic record of one scheduler run
// over a binding graph: which entries resolved, which tasks ran or failed,
// and which scatter/gather rewrites fired.
//
// GraphHash anchors the trace to the structure it was recorded against; it
// is a plain string so this package never imports the graph type. Events
// carry logical transitions only -- no timestamps, no pointers, no error
// text -- so two runs with the same outcomes serialize to the same bytes no
// matter how execution was interleaved.
//
// Once Canonicalize has been called the trace should be treated as
// immutable. It is observational only and must never feed back into
// scheduling decisions.
type ExecutionTrace struct {
	GraphHash string
	Events    []TraceEvent
}

// TraceEventKind discriminates TraceEvent. The string values are part of
// the trace's canonical bytes; do not rename.
type TraceEventKind string

const (
	EventEntryResolved  TraceEventKind = "EntryResolved"
	EventTaskExecuted   TraceEventKind = "TaskExecuted"
	EventTaskFailed     TraceEventKind = "TaskFailed"
	EventTaskSkipped    TraceEventKind = "TaskSkipped"
	EventScatterGraft   TraceEventKind = "ScatterGraft"
	EventChunksExpanded TraceEventKind = "ChunksExpanded"
	EventGatherGraft    TraceEventKind = "GatherGraft"
)

// kindRank fixes the sort position of each kind within one task's events.
// Appending a new kind means appending here; never reorder existing entries.
var kindRank = map[TraceEventKind]int{
	EventEntryResolved:  10,
	EventTaskExecuted:   20,
	EventTaskFailed:     30,
	EventTaskSkipped:    40,
	EventScatterGraft:   50,
	EventChunksExpanded: 60,
	EventGatherGraft:    70,
}

func kindOrder(k TraceEventKind) int {
	if rank, ok := kindRank[k]; ok {
		return rank
	}
	return 1000
}

// TraceEvent is a single logical transition or decision.
//
// Determinism constraints: no timestamps, no error strings or stack traces,
// no fields derived from pointer identity or map iteration. Optional fields
// must be set deterministically; empty Artifacts slices are normalized to
// nil and sorted by Canonicalize.
type TraceEvent struct {
	Kind TraceEventKind

	// TaskID identifies the task (or entry point) the event refers to.
	TaskID string

	// Reason is a stable, logical reason code (e.g., "MissingOutput",
	// "ChunkRewriteFailed"). The value set is open; producers must keep
	// the codes they emit stable.
	Reason string

	// CauseTaskID records a related upstream task, e.g. the failing
	// producer behind a skip.
	CauseTaskID string

	// Artifacts lists stable artifact identifiers attached to the event.
	Artifacts []string
}

// Validate checks basic shape invariants and returns a descriptive error.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == "" {
			return fmt.Errorf("events[%d].taskId is required for kind %q", i, e.Kind)
		}
		for j, a := range e.Artifacts {
			if a == "" {
				return fmt.Errorf("events[%d].artifacts[%d] is empty", i, j)
			}
		}
	}
	return nil
}

// Canonicalize normalizes and sorts the trace into its canonical form. The
// resulting order is a total order independent of execution timing and
// concurrency: events sort by (taskId, kind rank, reason, causeTaskId,
// artifacts), and each event's artifact list is copied, sorted, and
// nil-normalized when empty.
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		t.Events[i].Artifacts = normalizeArtifacts(t.Events[i].Artifacts)
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		return t.Events[i].less(t.Events[j])
	})
}

func normalizeArtifacts(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func (e TraceEvent) less(o TraceEvent) bool {
	if e.TaskID != o.TaskID {
		return e.TaskID < o.TaskID
	}
	if kindOrder(e.Kind) != kindOrder(o.Kind) {
		return kindOrder(e.Kind) < kindOrder(o.Kind)
	}
	if e.Reason != o.Reason {
		return e.Reason < o.Reason
	}
	if e.CauseTaskID != o.CauseTaskID {
		return e.CauseTaskID < o.CauseTaskID
	}
	return lessStrings(e.Artifacts, o.Artifacts)
}

func lessStrings(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// CanonicalJSON returns the canonical JSON encoding of the trace. It
// canonicalizes a copy, so the caller's event slice is left untouched.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	cp := ExecutionTrace{GraphHash: t.GraphHash, Events: make([]TraceEvent, len(t.Events))}
	copy(cp.Events, t.Events)
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical
// JSON bytes.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON fixes the field order. It does not sort events -- that is
// Canonicalize's job -- but the byte layout for a given event sequence is
// fully deterministic.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.GraphHash == "" {
		return nil, errors.New("graphHash is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeJSONField(&buf, "graphHash", t.GraphHash, true)
	buf.WriteString(`,"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes the field order and omits empty optional fields, so the
// canonical bytes never depend on which optional fields happen to be zero.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeJSONField(&buf, "kind", string(e.Kind), true)
	if e.TaskID != "" {
		writeJSONField(&buf, "taskId", e.TaskID, false)
	}
	if e.Reason != "" {
		writeJSONField(&buf, "reason", e.Reason, false)
	}
	if e.CauseTaskID != "" {
		writeJSONField(&buf, "causeTaskId", e.CauseTaskID, false)
	}
	if artifacts := normalizeArtifacts(e.Artifacts); len(artifacts) > 0 {
		buf.WriteString(`,"artifacts":[`)
		for i, a := range artifacts {
			if i > 0 {
				buf.WriteByte(',')
			}
			ab, _ := json.Marshal(a)
			buf.Write(ab)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONField(buf *bytes.Buffer, name, value string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	buf.WriteByte('"')
	buf.WriteString(name)
	buf.WriteString(`":`)
	vb, _ := json.Marshal(value)
	buf.Write(vb)
}
