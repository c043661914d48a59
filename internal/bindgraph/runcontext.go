package bindgraph

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// instanceKey is the allocator key for RunContext.NextInstanceID: a
// monotone counter keyed by (taskID, node kind).
type instanceKey struct {
	taskID string
	kind   NodeKind
}

// RunContext is the only module-level state this package depends on: the
// process-lifetime output-path counter, the scatter/gather instance-id
// allocator, and the observability handles (logger, tracer, meter) threaded
// through a single workflow run.
//
// A RunContext is single-writer: exactly one scheduler owns it, matching the
// rest of the package's "no concurrent mutation" contract.
type RunContext struct {
	RunID string

	Log    *logrus.Entry
	Tracer trace.Tracer
	Meter  metric.Meter

	fileTypeCounter map[string]int
	instanceCounter map[instanceKey]int

	scatterGrafts metric.Int64Counter
}

// NewRunContext builds a RunContext with no-op observability handles. Callers
// that want real tracing/metrics/logging set Log/Tracer/Meter before use;
// the core never requires a configured SDK to function correctly.
func NewRunContext() *RunContext {
	rc := &RunContext{
		RunID:           uuid.NewString(),
		Log:             logrus.NewEntry(logrus.StandardLogger()),
		Tracer:          nooptrace.NewTracerProvider().Tracer("bindgraph"),
		Meter:           noopmetric.NewMeterProvider().Meter("bindgraph"),
		fileTypeCounter: make(map[string]int),
		instanceCounter: make(map[instanceKey]int),
	}
	counter, err := rc.Meter.Int64Counter(
		"bindgraph.scatter_grafts",
		metric.WithDescription("number of scatter/gather rewrites applied to a binding graph"),
	)
	if err == nil {
		rc.scatterGrafts = counter
	}
	return rc
}

// NextInstanceID is the monotone unique-id allocator keyed by (taskID,
// node kind) used when grafting scatter, chunked, and gather nodes. It never
// repeats a value for the same key within the lifetime of rc.
func (rc *RunContext) NextInstanceID(taskID string, kind NodeKind) int {
	key := instanceKey{taskID: taskID, kind: kind}
	next := rc.instanceCounter[key] + 1
	rc.instanceCounter[key] = next
	return next
}

// nextFileTypeCount returns the occurrence count of fileTypeID seen so far
// (0 on first call) and advances the counter. Shared across calls for a
// single workflow run so allocated names stay globally unique.
func (rc *RunContext) nextFileTypeCount(fileTypeID string) int {
	count := rc.fileTypeCounter[fileTypeID]
	rc.fileTypeCounter[fileTypeID] = count + 1
	return count
}

func (rc *RunContext) logger() *logrus.Entry {
	if rc == nil || rc.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return rc.Log
}
