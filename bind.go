package dispatch

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

const tagName = "dispatch"

// dataMeta holds pre-computed metadata about a system's data type.
// Computed once at registration and reused to bind the data value.
type dataMeta struct {
	// Type is the analyzed data type
	Type reflect.Type

	// Fields holds every accessor found in the type, in declaration order
	Fields []accessorField

	Reads  []AccessSpec
	Writes []AccessSpec
}

// accessorField locates one Accessor inside the data value.
type accessorField struct {
	// Offset is the offset from the start of the data value
	Offset uintptr

	// Name is the dotted field path for debugging
	Name string

	Type reflect.Type
}

// analyzeData analyzes a system data type and returns its metadata.
//
// The data type is either an Accessor itself or a struct whose fields
// (recursively, through nested and embedded structs) are Accessors.
// Non-accessor fields are left untouched. Fields tagged `dispatch:"-"` are skipped.
func analyzeData(t reflect.Type) (*dataMeta, error) {
	meta := &dataMeta{Type: t}

	if isAccessor(t) {
		meta.Fields = append(meta.Fields, accessorField{Name: t.String(), Type: t})
	} else if t.Kind() == reflect.Struct {
		if err := walkStruct(t, 0, "", meta); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("%w: %v must be a struct or implement Accessor", ErrInvalidData, t)
	}

	for _, f := range meta.Fields {
		acc := reflect.New(f.Type).Interface().(Accessor)
		acc.CollectReads(&meta.Reads)
		acc.CollectWrites(&meta.Writes)
	}

	return meta, nil
}

// walkStruct collects the accessors of t. Accessors reachable only through an
// array, slice, map, channel or pointer cannot be bound by offset and are rejected.
func walkStruct(t reflect.Type, base uintptr, prefix string, meta *dataMeta) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if skipField(field.Tag.Get(tagName)) {
			continue
		}

		name := field.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		if isAccessor(field.Type) {
			meta.Fields = append(meta.Fields, accessorField{
				Offset: base + field.Offset,
				Name:   name,
				Type:   field.Type,
			})
			continue
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			if err := walkStruct(field.Type, base+field.Offset, name, meta); err != nil {
				return err
			}
		case reflect.Array, reflect.Slice, reflect.Map, reflect.Chan, reflect.Pointer:
			if hidesAccessor(field.Type, make(map[reflect.Type]bool)) {
				return fmt.Errorf("%w: field %s holds a resource handle that cannot be bound", ErrInvalidData, name)
			}
		}
	}
	return nil
}

// hidesAccessor reports whether an accessor is reachable from t.
func hidesAccessor(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true

	if isAccessor(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Array, reflect.Slice, reflect.Chan, reflect.Pointer:
		return hidesAccessor(t.Elem(), seen)
	case reflect.Map:
		return hidesAccessor(t.Key(), seen) || hidesAccessor(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hidesAccessor(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

func isAccessor(t reflect.Type) bool {
	return t.Kind() != reflect.Interface && t.Kind() != reflect.Pointer &&
		reflect.PointerTo(t).Implements(accessorType)
}

func skipField(tag string) bool {
	for part := range strings.SplitSeq(tag, ",") {
		if strings.TrimSpace(part) == "-" {
			return true
		}
	}
	return false
}

// bind attaches every accessor inside the data value at ptr to b.
// ptr must point to a value of meta.Type.
func (meta *dataMeta) bind(ptr unsafe.Pointer, b *Binding) {
	for i := range meta.Fields {
		f := &meta.Fields[i]
		acc := reflect.NewAt(f.Type, unsafe.Add(ptr, f.Offset)).Interface().(Accessor)
		acc.Bind(b)
	}
}
