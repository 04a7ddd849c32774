package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundle_Install(t *testing.T) {
	clock := NewClock()
	res := NewResources()
	d := New(WithLogger(quietLogger()))
	t.Cleanup(d.Close)

	b := NewBundle("counting").
		Resource(NewFrameSync(clock)).
		Resource(uint32(10)).
		System(Add[counterData](counter(-1), Named("a"))).
		System(Add[counterData](counter(-1), Named("b"), InStage(After)))

	assert.Equal(t, "counting", b.Name())
	require.NoError(t, b.Install(d, res))
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, 2, d.Len())

	clock.Advance()
	require.NoError(t, d.Tick(context.Background(), res))
	assert.Equal(t, uint32(12), value[uint32](t, res))
}

func TestBundle_InstallWrapsErrors(t *testing.T) {
	res := NewResources()
	d := New(WithLogger(quietLogger()))
	t.Cleanup(d.Close)

	err := NewBundle("broken").
		System(Add[counterData](counter(-1), RequireResources())).
		Install(d, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceMissing)
	assert.Contains(t, err.Error(), "bundle broken")
}
