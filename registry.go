package dispatch

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// ResourceID is a dispatcher-local identifier for a resource type.
// Valid IDs range from 0 to 255.
type ResourceID uint8

// MaxResources is the maximum number of resource types a dispatcher can schedule over.
const MaxResources = 256

// resourceRegistry assigns sequential IDs to resource types.
// IDs are only used to build access masks, so each dispatcher owns its own registry.
type resourceRegistry struct {
	// types maps reflect.Type to ResourceID. Read on every registration, written once per type.
	types sync.Map // map[reflect.Type]ResourceID

	typesArr [MaxResources]reflect.Type
	arrMu    sync.RWMutex

	nextID atomic.Uint32
}

func newResourceRegistry() *resourceRegistry {
	return &resourceRegistry{}
}

// register returns the ID for t, allocating one if needed.
func (r *resourceRegistry) register(t reflect.Type) ResourceID {
	if id, ok := r.types.Load(t); ok {
		return id.(ResourceID)
	}

	next := r.nextID.Add(1) - 1
	if next >= MaxResources {
		panic(fmt.Sprintf("dispatch: resource type limit exceeded (max %d types)", MaxResources))
	}
	newID := ResourceID(next)

	actual, loaded := r.types.LoadOrStore(t, newID)
	if loaded {
		return actual.(ResourceID)
	}

	r.arrMu.Lock()
	r.typesArr[newID] = t
	r.arrMu.Unlock()

	return newID
}

// typeOf returns the resource type registered under id.
func (r *resourceRegistry) typeOf(id ResourceID) reflect.Type {
	r.arrMu.RLock()
	defer r.arrMu.RUnlock()
	return r.typesArr[id]
}

// count returns the number of registered resource types.
func (r *resourceRegistry) count() int {
	return int(r.nextID.Load())
}
