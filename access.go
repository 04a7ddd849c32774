package dispatch

import (
	"reflect"
)

// Mode is the access mode of a resource declaration.
type Mode uint8

const (
	// ModeRead is shared read access. Any number of readers may run together.
	ModeRead Mode = iota
	// ModeWrite is exclusive write access.
	ModeWrite
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// AccessSpec declares access to one resource type.
type AccessSpec struct {
	Type reflect.Type
	Mode Mode
}

// ReadOf returns the read declaration for T.
func ReadOf[T any]() AccessSpec {
	return AccessSpec{Type: reflect.TypeFor[T](), Mode: ModeRead}
}

// WriteOf returns the write declaration for T.
func WriteOf[T any]() AccessSpec {
	return AccessSpec{Type: reflect.TypeFor[T](), Mode: ModeWrite}
}

// Accessor is implemented by every type a system can use to declare and reach resources.
//
// CollectReads and CollectWrites append one AccessSpec per resource type touched and
// must work on the zero value. Bind attaches the accessor to a system's binding.
// Composite accessors forward all three calls to their parts in order.
type Accessor interface {
	CollectReads(out *[]AccessSpec)
	CollectWrites(out *[]AccessSpec)
	Bind(b *Binding)
}

var accessorType = reflect.TypeFor[Accessor]()

// AccessMeta describes what resources a system reads or writes.
// Used for conflict detection and parallel scheduling.
type AccessMeta struct {
	Reads  []reflect.Type
	Writes []reflect.Type

	// Precomputed masks and sets for fast conflict checks
	readMask  Bitmask
	writeMask Bitmask
	readsSet  map[reflect.Type]struct{}
	writesSet map[reflect.Type]struct{}
}

// newAccessMeta folds declarations into an AccessMeta, deduplicating types
// while keeping declaration order.
func newAccessMeta(reads, writes []AccessSpec, registry *resourceRegistry) AccessMeta {
	var a AccessMeta
	for _, spec := range reads {
		if !containsType(a.Reads, spec.Type) {
			a.Reads = append(a.Reads, spec.Type)
		}
	}
	for _, spec := range writes {
		if !containsType(a.Writes, spec.Type) {
			a.Writes = append(a.Writes, spec.Type)
		}
	}
	a.prepare(registry)
	return a
}

// prepare precomputes lookup sets and masks from the slice fields.
func (a *AccessMeta) prepare(registry *resourceRegistry) {
	build := func(src []reflect.Type, mask *Bitmask) map[reflect.Type]struct{} {
		if len(src) == 0 {
			return nil
		}
		m := make(map[reflect.Type]struct{}, len(src))
		for _, t := range src {
			m[t] = struct{}{}
			mask.Set(registry.register(t))
		}
		return m
	}
	a.readsSet = build(a.Reads, &a.readMask)
	a.writesSet = build(a.Writes, &a.writeMask)
}

// Conflicts returns true if this access pattern conflicts with another.
// Write/write and read/write overlaps conflict; read/read never does.
func (a *AccessMeta) Conflicts(other *AccessMeta) bool {
	if a.writeMask.ContainsAny(other.writeMask.Or(other.readMask)) {
		return true
	}
	return a.readMask.ContainsAny(other.writeMask)
}

// overlap returns the resources on which a and other conflict.
func (a *AccessMeta) overlap(other *AccessMeta) Bitmask {
	var m Bitmask
	for i := range m {
		m[i] = a.writeMask[i]&(other.writeMask[i]|other.readMask[i]) | a.readMask[i]&other.writeMask[i]
	}
	return m
}

// CanRead reports whether t was declared for reading or writing.
func (a *AccessMeta) CanRead(t reflect.Type) bool {
	if _, ok := a.readsSet[t]; ok {
		return true
	}
	_, ok := a.writesSet[t]
	return ok
}

// CanWrite reports whether t was declared for writing.
func (a *AccessMeta) CanWrite(t reflect.Type) bool {
	_, ok := a.writesSet[t]
	return ok
}

// allows reports whether the declared sets permit mode access to t.
func (a *AccessMeta) allows(t reflect.Type, mode Mode) bool {
	if mode == ModeWrite {
		return a.CanWrite(t)
	}
	return a.CanRead(t)
}

// IsEmpty reports whether nothing was declared.
func (a *AccessMeta) IsEmpty() bool {
	return a.readMask.IsZero() && a.writeMask.IsZero()
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}
