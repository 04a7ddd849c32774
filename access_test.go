package dispatch

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type (
	resA struct{ N int }
	resB struct{ N int }
)

func accessOf(registry *resourceRegistry, reads, writes []AccessSpec) AccessMeta {
	return newAccessMeta(reads, writes, registry)
}

func TestAccessMeta_Conflicts(t *testing.T) {
	reg := newResourceRegistry()
	readA := []AccessSpec{ReadOf[resA]()}
	writeA := []AccessSpec{WriteOf[resA]()}
	writeB := []AccessSpec{WriteOf[resB]()}

	tests := []struct {
		name     string
		a, b     AccessMeta
		conflict bool
	}{
		{"read/read", accessOf(reg, readA, nil), accessOf(reg, readA, nil), false},
		{"read/write", accessOf(reg, readA, nil), accessOf(reg, nil, writeA), true},
		{"write/read", accessOf(reg, nil, writeA), accessOf(reg, readA, nil), true},
		{"write/write", accessOf(reg, nil, writeA), accessOf(reg, nil, writeA), true},
		{"disjoint writes", accessOf(reg, nil, writeA), accessOf(reg, nil, writeB), false},
		{"empty", accessOf(reg, nil, nil), accessOf(reg, readA, writeB), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.conflict, tt.a.Conflicts(&tt.b))
			assert.Equal(t, tt.conflict, tt.b.Conflicts(&tt.a), "conflict is symmetric")
		})
	}
}

func TestAccessMeta_DeduplicatesInOrder(t *testing.T) {
	reg := newResourceRegistry()
	a := accessOf(reg,
		[]AccessSpec{ReadOf[resB](), ReadOf[resA](), ReadOf[resB]()},
		[]AccessSpec{WriteOf[resA](), WriteOf[resA]()})

	assert.Equal(t, []reflect.Type{reflect.TypeFor[resB](), reflect.TypeFor[resA]()}, a.Reads)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[resA]()}, a.Writes)
	assert.Equal(t, 2, reg.count())
}

func TestAccessMeta_Allows(t *testing.T) {
	reg := newResourceRegistry()
	a := accessOf(reg, []AccessSpec{ReadOf[resA]()}, []AccessSpec{WriteOf[resB]()})

	assert.True(t, a.CanRead(reflect.TypeFor[resA]()))
	assert.False(t, a.CanWrite(reflect.TypeFor[resA]()))
	assert.True(t, a.CanRead(reflect.TypeFor[resB]()), "writers may read")
	assert.True(t, a.CanWrite(reflect.TypeFor[resB]()))
	assert.False(t, a.CanRead(reflect.TypeFor[int]()))
	assert.False(t, a.IsEmpty())
	empty := accessOf(reg, nil, nil)
	assert.True(t, empty.IsEmpty())
}

func TestResourceRegistry_StableIDs(t *testing.T) {
	reg := newResourceRegistry()
	a := reg.register(reflect.TypeFor[resA]())
	b := reg.register(reflect.TypeFor[resB]())

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, reg.register(reflect.TypeFor[resA]()))
	assert.Equal(t, reflect.TypeFor[resB](), reg.typeOf(b))
	assert.Equal(t, 2, reg.count())
}

func TestBitmask_IDs(t *testing.T) {
	var m Bitmask
	m.Set(3)
	m.Set(64)
	m.Set(255)

	assert.Equal(t, []ResourceID{3, 64, 255}, m.IDs())
	assert.Equal(t, 3, m.Count())

	m.Clear(64)
	assert.False(t, m.Has(64))
	assert.True(t, m.ContainsAll(Bitmask{8, 0, 0, 1 << 63}))
}
