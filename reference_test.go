package dispatch

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_UnboundFails(t *testing.T) {
	ref := NewReference()
	assert.False(t, ref.Bound())

	_, err := Resolve[int](ref, ModeRead)
	assert.ErrorIs(t, err, ErrReferenceNotBound)
}

func TestReference_PointAtAndClear(t *testing.T) {
	ref := NewReference()
	res := NewResources()
	Insert(res, 3)

	ref.PointAt(res)
	require.True(t, ref.Bound())

	v, err := Resolve[int](ref, ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 3, *v)

	_, err = Resolve[string](ref, ModeRead)
	assert.ErrorIs(t, err, ErrResourceMissing)

	ref.Clear()
	_, err = Resolve[int](ref, ModeRead)
	assert.ErrorIs(t, err, ErrReferenceNotBound)
}

func TestReference_RepointFollowsNewStore(t *testing.T) {
	ref := NewReference()

	first := NewResources()
	Insert(first, "first")
	second := NewResources()
	Insert(second, "second")

	b := &Binding{ref: ref}
	var h Read[string]
	h.Bind(b)

	ref.PointAt(first)
	assert.Equal(t, "first", *h.Get())

	ref.PointAt(second)
	assert.Equal(t, "second", *h.Get(), "handles resolve through the reference, not a captured address")

	ref.Clear()
	_, err := h.Lookup()
	assert.ErrorIs(t, err, ErrReferenceNotBound)
}

func TestHandle_ZeroValueIsUnbound(t *testing.T) {
	var r Read[int]
	_, err := r.Lookup()
	assert.ErrorIs(t, err, ErrReferenceNotBound)

	var w Write[int]
	assert.PanicsWithError(t, (&AccessError{Kind: ErrReferenceNotBound, Type: reflect.TypeFor[int](), Mode: ModeWrite}).Error(), func() {
		w.Set(1)
	})
}
