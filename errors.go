package vkgrt

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Every error returned by this package matches exactly one
// of them with errors.Is.
var (
	ErrInitialization        = errors.New("initialization failure")
	ErrNoSuitableMemoryType  = errors.New("no suitable memory type")
	ErrNoSuitableQueueFamily = errors.New("no suitable queue family")
	ErrBuild                 = errors.New("acceleration structure build failure")
	ErrSubmission            = errors.New("submission failure")
	ErrAllocation            = errors.New("device allocation failure")
)

// OpError records the operation that failed, the kind of failure and the
// underlying driver error, if any.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Is matches the kind as well as anything in the wrapped chain.
func (e *OpError) Is(target error) bool { return target == e.Kind }

// fail builds an OpError carrying a stack trace.
func fail(kind error, op string, err error) error {
	return errors.WithStack(&OpError{Op: op, Kind: kind, Err: err})
}

// failf is fail with a formatted cause.
func failf(kind error, op string, format string, args ...interface{}) error {
	return fail(kind, op, errors.Errorf(format, args...))
}
