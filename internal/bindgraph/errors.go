package bindgraph

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers should match with errors.Is; BindError.Unwrap
// exposes the kind so wrapped detail never hides the category.
var (
	ErrMalformedBindingStr          = errors.New("malformed binding string")
	ErrMalformedBinding             = errors.New("malformed binding")
	ErrTaskIdNotFound               = errors.New("task id not found in catalog")
	ErrIndexOutOfRange              = errors.New("binding index out of range")
	ErrMalformedBindingGraph        = errors.New("malformed binding graph")
	ErrBindingFileTypeIncompatible  = errors.New("binding file type incompatible")
	ErrInvalidEntryPoint            = errors.New("invalid entry point")
	ErrMissingChunkKey              = errors.New("missing chunk key")
	ErrInvalidTaskState             = errors.New("invalid task state")
	ErrMissingOutput                = errors.New("task output file not present")
	ErrCycleDetected                = errors.New("binding graph contains a cycle")
)

// BindError wraps one of the sentinel kinds above with contextual detail.
type BindError struct {
	Kind error
	Msg  string
}

func (e *BindError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *BindError) Unwrap() error { return e.Kind }

func wrapf(kind error, format string, args ...any) error {
	return &BindError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
