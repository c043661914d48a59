package bindgraph

import "time"

// TaskState is the runtime status of a task-like node. States form a total
// order for reporting only; the allowed transitions are enforced by
// UpdateState/MarkSuccess/MarkFailed in resolver.go.
type TaskState string

const (
	StateCreated   TaskState = "CREATED"
	StateReady     TaskState = "READY"
	StateSubmitted TaskState = "SUBMITTED"
	StateRunning   TaskState = "RUNNING"
	StateSuccess   TaskState = "SUCCESSFUL"
	StateFailed    TaskState = "FAILED"
	StateKilled    TaskState = "KILLED"
)

// allStates is consulted by UpdateState to reject unrecognized states.
var allStates = map[TaskState]bool{
	StateCreated:   true,
	StateReady:     true,
	StateSubmitted: true,
	StateRunning:   true,
	StateSuccess:   true,
	StateFailed:    true,
	StateKilled:    true,
}

// IsCompleted reports whether s is one of the terminal COMPLETED_STATES.
func (s TaskState) IsCompleted() bool {
	switch s {
	case StateSuccess, StateFailed, StateKilled:
		return true
	default:
		return false
	}
}

// FileAttrs is the mutable attribute set carried by every file-like node.
type FileAttrs struct {
	Path       string
	IsResolved bool
	ResolvedAt *time.Time
}

// TaskAttrs is the mutable attribute set carried by every task-like node.
type TaskAttrs struct {
	State           TaskState
	RuntimeSec      float64
	ErrorMsg        string
	NProc           int
	ResolvedOptions map[string]string
	Commands        []string
	IsChunkable     bool
	IsChunkRunning  bool
	OperatorID      string
	WasChunked      bool
}

func defaultFileAttrs() *FileAttrs {
	return &FileAttrs{IsResolved: false}
}

func defaultTaskAttrs(nproc int) *TaskAttrs {
	return &TaskAttrs{
		State:           StateCreated,
		ResolvedOptions: map[string]string{},
		Commands:        []string{},
		NProc:           nproc,
	}
}

// FileType describes one file kind the catalog and path allocator reason
// about. FileType.ID is the identity used for producer/consumer equality
// checks; BaseName/Ext feed the default output-path allocator.
type FileType struct {
	ID       string
	BaseName string
	Ext      string
}

// MetaTask is the immutable task-metadata catalog entry consumed by the
// builder and the scatter/gather rewriter. MetaScatterTask and MetaGatherTask
// share this exact shape per the external-interfaces contract: neither adds
// fields of interest to the core.
type MetaTask struct {
	TaskID          string
	InputTypes      []FileType
	OutputTypes     []FileType
	NProc           int
	ClusterTemplate string
}

type (
	MetaScatterTask = MetaTask
	MetaGatherTask  = MetaTask
)

// TaskCatalog is the external, immutable registry the builder and rewriter
// resolve task ids against.
type TaskCatalog map[string]MetaTask

// Binding is one parsed-pending tuple (out, in): Out is either "$entry:EID"
// or a task-output reference; In is a task-input reference.
type Binding struct {
	Out string
	In  string
}

// PipelineChunk is one shard emitted by a scatter task's chunk manifest.
type PipelineChunk struct {
	ChunkID string
	Datum   map[string]string
}

// ChunkOperator describes how to scatter a task and how to gather its
// results.
type ChunkOperator struct {
	OperatorID string
	Scatter    ScatterSpec
	Gather     GatherSpec
}

type ScatterSpec struct {
	TaskID        string
	ScatterTaskID string
	Chunks        []ScatterChunkSpec
}

type ScatterChunkSpec struct {
	ChunkKey  string
	TaskInput string // "taskId:INDEX" -- only the trailing index is consumed
}

type GatherSpec struct {
	Chunks []GatherChunkSpec
}

type GatherChunkSpec struct {
	ChunkKey     string
	GatherTaskID string

	// TaskInput is a "taskId:INDEX" string whose trailing index mirrors the
	// scattered task's output slot. The gather task's own input and output
	// always sit at position 0, so the index is never used for positioning.
	TaskInput string
}

// FSProbe is the narrow filesystem-existence capability MarkSuccess checks
// task outputs against.
type FSProbe interface {
	Exists(path string) bool
}

// ChunkManifestReader/Writer are the narrow chunk-manifest I/O capabilities;
// encoding is opaque to this package (see internal/chunkio for the concrete
// JSON implementation).
type ChunkManifestReader interface {
	Read(path string) ([]PipelineChunk, error)
}

type ChunkManifestWriter interface {
	Write(path string, chunks []PipelineChunk, comment string) error
}
