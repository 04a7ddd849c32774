package dispatch

import (
	"reflect"
	"sync/atomic"
)

// Reference is the indirection cell through which every handle reaches the store.
//
// Handles captured by a suspended system hold the Reference, never the store
// or a value inside it. The dispatcher points the Reference at the live store
// at the start of every tick and clears it at the end, so a handle touched
// outside a tick fails with ErrReferenceNotBound instead of reaching stale data.
//
// A Reference must not move or be dropped while any system may still resume.
// The dispatcher allocates exactly one and keeps it for its whole lifetime.
type Reference struct {
	target atomic.Pointer[Resources]
}

// NewReference creates an unbound reference.
func NewReference() *Reference {
	return &Reference{}
}

// PointAt binds the reference to res for the current tick.
// Must not be called while a handle is being dereferenced concurrently.
func (r *Reference) PointAt(res *Resources) {
	r.target.Store(res)
}

// Clear unbinds the reference.
// Must not be called while a handle is being dereferenced concurrently.
func (r *Reference) Clear() {
	r.target.Store(nil)
}

// Bound reports whether the reference currently points at a store.
func (r *Reference) Bound() bool {
	return r.target.Load() != nil
}

// resolve dereferences the current target for type t.
func (r *Reference) resolve(t reflect.Type, mode Mode) (any, error) {
	res := r.target.Load()
	if res == nil {
		return nil, &AccessError{Kind: ErrReferenceNotBound, Type: t, Mode: mode}
	}
	v, ok := res.get(t)
	if !ok {
		return nil, &AccessError{Kind: ErrResourceMissing, Type: t, Mode: mode}
	}
	return v, nil
}

// Resolve dereferences the resource of type T through ref.
// Fails with ErrReferenceNotBound outside a tick and ErrResourceMissing if T was never inserted.
func Resolve[T any](ref *Reference, mode Mode) (*T, error) {
	v, err := ref.resolve(reflect.TypeFor[T](), mode)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}
