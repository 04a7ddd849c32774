package dispatch

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

var (
	// ErrResourceMissing is returned when a resource type was never inserted into the store.
	ErrResourceMissing = errors.New("dispatch: resource missing")

	// ErrReferenceNotBound is returned when a handle is dereferenced outside a tick.
	ErrReferenceNotBound = errors.New("dispatch: resource reference not bound")

	// ErrUndeclaredAccess is returned when a system touches a resource outside its declared sets.
	ErrUndeclaredAccess = errors.New("dispatch: undeclared resource access")

	// ErrRegisterAfterStart is returned by Register once the dispatcher has ticked.
	ErrRegisterAfterStart = errors.New("dispatch: register called after dispatcher started")

	// ErrHalted is returned by Tick after a system failed under the Halt policy.
	ErrHalted = errors.New("dispatch: dispatcher halted")

	// ErrClosed is returned by Tick after Close.
	ErrClosed = errors.New("dispatch: dispatcher closed")

	// ErrInvalidData is returned when a system's data type cannot be analyzed.
	ErrInvalidData = errors.New("dispatch: invalid system data")
)

// AccessError describes a failed resource access.
// It unwraps to one of ErrResourceMissing, ErrReferenceNotBound or ErrUndeclaredAccess.
type AccessError struct {
	// Kind is the sentinel this error unwraps to.
	Kind error

	// Type is the resource type that was accessed.
	Type reflect.Type

	// Mode is the requested access mode.
	Mode Mode

	// System is the name of the accessing system, if known.
	System string
}

// Error implements the error interface.
func (e *AccessError) Error() string {
	if e.System != "" {
		return fmt.Sprintf("%v: %s %v (system=%s)", e.Kind, e.Mode, e.Type, e.System)
	}
	return fmt.Sprintf("%v: %s %v", e.Kind, e.Mode, e.Type)
}

// Unwrap returns the sentinel kind.
func (e *AccessError) Unwrap() error {
	return e.Kind
}

// SystemError reports the failure of one system's step.
type SystemError struct {
	System string
	ID     uuid.UUID
	Tick   uint64
	Err    error
}

// Error implements the error interface.
func (e *SystemError) Error() string {
	return fmt.Sprintf("dispatch: system %s (%s) failed at tick %d: %v", e.System, e.ID, e.Tick, e.Err)
}

// Unwrap returns the underlying failure.
func (e *SystemError) Unwrap() error {
	return e.Err
}

// IsAccessError reports whether err is an access failure of the given kind.
// Uses errors.As so wrapped errors match.
func IsAccessError(err error, kind error) bool {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// PanicError wraps a value recovered from a panicking system.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
}

// Unwrap returns the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
