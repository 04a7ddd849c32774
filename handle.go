package dispatch

import (
	"context"
	"reflect"
)

// Binding ties a system's handles to the dispatcher's Reference and to the
// access the system declared at registration.
type Binding struct {
	ref    *Reference
	access *AccessMeta
	system string
}

// resolve checks the declared sets, then dereferences through the Reference.
func (b *Binding) resolve(t reflect.Type, mode Mode) (any, error) {
	if b == nil || b.ref == nil {
		return nil, &AccessError{Kind: ErrReferenceNotBound, Type: t, Mode: mode}
	}
	if b.access != nil && !b.access.allows(t, mode) {
		return nil, &AccessError{Kind: ErrUndeclaredAccess, Type: t, Mode: mode, System: b.system}
	}
	v, err := b.ref.resolve(t, mode)
	if err != nil {
		if ae, ok := err.(*AccessError); ok {
			ae.System = b.system
		}
		return nil, err
	}
	return v, nil
}

// Read is a shared read handle to the resource of type T.
//
// Declaring a Read[T] field in a system's data struct adds T to the system's
// read set. The handle may be held across frame barriers; it only resolves
// while the dispatcher is ticking.
type Read[T any] struct {
	binding *Binding
}

// CollectReads implements Accessor.
func (Read[T]) CollectReads(out *[]AccessSpec) {
	*out = append(*out, ReadOf[T]())
}

// CollectWrites implements Accessor.
func (Read[T]) CollectWrites(*[]AccessSpec) {}

// Bind implements Accessor.
func (h *Read[T]) Bind(b *Binding) {
	h.binding = b
}

// Lookup returns the current value of T.
// The returned pointer is only valid until the system next suspends and must not be written through.
func (h Read[T]) Lookup() (*T, error) {
	v, err := h.binding.resolve(reflect.TypeFor[T](), ModeRead)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Get is like Lookup but panics with the *AccessError on failure.
func (h Read[T]) Get() *T {
	v, err := h.Lookup()
	if err != nil {
		panic(err)
	}
	return v
}

// Write is an exclusive write handle to the resource of type T.
//
// Declaring a Write[T] field in a system's data struct adds T to the system's
// write set. The dispatcher never runs the system alongside another system
// that reads or writes T.
type Write[T any] struct {
	binding *Binding
}

// CollectReads implements Accessor.
func (Write[T]) CollectReads(*[]AccessSpec) {}

// CollectWrites implements Accessor.
func (Write[T]) CollectWrites(out *[]AccessSpec) {
	*out = append(*out, WriteOf[T]())
}

// Bind implements Accessor.
func (h *Write[T]) Bind(b *Binding) {
	h.binding = b
}

// Lookup returns a mutable pointer to the current value of T.
// The pointer is only valid until the system next suspends.
func (h Write[T]) Lookup() (*T, error) {
	v, err := h.binding.resolve(reflect.TypeFor[T](), ModeWrite)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Get is like Lookup but panics with the *AccessError on failure.
func (h Write[T]) Get() *T {
	v, err := h.Lookup()
	if err != nil {
		panic(err)
	}
	return v
}

// Set replaces the value of T in place. Panics like Get.
func (h Write[T]) Set(value T) {
	*h.Get() = value
}

// Fetch resolves T for reading from inside a running system.
// T must be in the system's declared read or write set, otherwise
// ErrUndeclaredAccess is returned. Outside a system, Fetch fails with
// ErrReferenceNotBound.
func Fetch[T any](ctx context.Context) (*T, error) {
	return fetch[T](ctx, ModeRead)
}

// FetchMut resolves T for writing from inside a running system.
// T must be in the system's declared write set.
func FetchMut[T any](ctx context.Context) (*T, error) {
	return fetch[T](ctx, ModeWrite)
}

func fetch[T any](ctx context.Context, mode Mode) (*T, error) {
	t := taskFrom(ctx)
	if t == nil {
		return nil, &AccessError{Kind: ErrReferenceNotBound, Type: reflect.TypeFor[T](), Mode: mode}
	}
	v, err := t.binding.resolve(reflect.TypeFor[T](), mode)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}
