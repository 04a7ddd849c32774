package dispatch

import (
	"reflect"
	"sync"
)

// Resources is a type-keyed table of singleton values.
// At most one value is stored per type; inserting again replaces the old value.
//
// The store does not arbitrate concurrent access to the values it holds.
// The Dispatcher guarantees that a resource is never written while another
// system reads or writes it.
type Resources struct {
	mu   sync.RWMutex
	data map[reflect.Type]any // values are *T keyed by T
}

// NewResources creates an empty store.
func NewResources() *Resources {
	return &Resources{
		data: make(map[reflect.Type]any),
	}
}

// Insert stores value under its dynamic type, replacing any prior value of that type.
// Nil values are ignored.
func (r *Resources) Insert(value any) {
	if value == nil {
		return
	}
	t := reflect.TypeOf(value)
	ptr := reflect.New(t)
	ptr.Elem().Set(reflect.ValueOf(value))

	r.mu.Lock()
	r.data[t] = ptr.Interface()
	r.mu.Unlock()
}

// Insert stores value as the resource of type T, replacing any prior value of that type.
func Insert[T any](r *Resources, value T) {
	ptr := new(T)
	*ptr = value

	r.mu.Lock()
	r.data[reflect.TypeFor[T]()] = ptr
	r.mu.Unlock()
}

// Get returns the resource of type T for reading.
// The returned pointer must not be used to mutate the value.
func Get[T any](r *Resources) (*T, error) {
	return lookup[T](r, ModeRead)
}

// GetMut returns the resource of type T for exclusive writing.
func GetMut[T any](r *Resources) (*T, error) {
	return lookup[T](r, ModeWrite)
}

func lookup[T any](r *Resources, mode Mode) (*T, error) {
	t := reflect.TypeFor[T]()
	v, ok := r.get(t)
	if !ok {
		return nil, &AccessError{Kind: ErrResourceMissing, Type: t, Mode: mode}
	}
	return v.(*T), nil
}

// Has reports whether a resource of type t is present.
func (r *Resources) Has(t reflect.Type) bool {
	_, ok := r.get(t)
	return ok
}

// Remove deletes the resource of type t. It reports whether a value was removed.
func (r *Resources) Remove(t reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t]; !ok {
		return false
	}
	delete(r.data, t)
	return true
}

// Len returns the number of stored resources.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// get returns the boxed *T for t.
func (r *Resources) get(t reflect.Type) (any, bool) {
	r.mu.RLock()
	v, ok := r.data[t]
	r.mu.RUnlock()
	return v, ok
}
