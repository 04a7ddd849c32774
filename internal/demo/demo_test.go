package demo

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/dispatch"
)

func newSim(t *testing.T, bodies int, report func(Stats)) (*dispatch.Dispatcher, *dispatch.Resources, *dispatch.Runner) {
	t.Helper()

	clock := dispatch.NewClock()
	res := dispatch.NewResources()
	res.Insert(dispatch.NewFrameSync(clock))

	d := dispatch.New(dispatch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(d.Close)

	require.NoError(t, Bundle(bodies, report).Install(d, res))
	return d, res, dispatch.NewRunner(d, res, clock)
}

func TestBundle_Plan(t *testing.T) {
	d, _, _ := newSim(t, 2, nil)

	plan := d.Plan()
	require.Len(t, plan, 2)

	assert.Equal(t, dispatch.Default, plan[0].Stage)
	require.Len(t, plan[0].Groups, 2)
	assert.Equal(t, []string{"Integrate", "counter-a"}, plan[0].Groups[0].Systems)
	assert.Equal(t, []string{"counter-b"}, plan[0].Groups[1].Systems)

	assert.Equal(t, dispatch.After, plan[1].Stage)
	assert.Equal(t, []string{"Observer"}, plan[1].Groups[0].Systems)
}

func TestSimulation_CountersAdvanceTwicePerTick(t *testing.T) {
	var reports []Stats
	_, res, runner := newSim(t, 4, func(s Stats) { reports = append(reports, s) })

	const ticks = 10
	for range ticks {
		require.NoError(t, runner.Step(context.Background()))
	}

	count, err := dispatch.Get[uint32](res)
	require.NoError(t, err)
	assert.Equal(t, uint32(2*ticks), *count)

	require.Len(t, reports, ticks)
	for i, s := range reports {
		assert.Equal(t, uint32(2*(i+1)), s.Count, "observer runs after both counters")
		assert.Equal(t, uint64(i+1), s.Frame)
	}
}

func TestSimulation_BodiesStayAboveFloor(t *testing.T) {
	_, res, runner := newSim(t, 6, nil)

	for range 200 {
		require.NoError(t, runner.Step(context.Background()))
	}

	bodies, err := dispatch.Get[Bodies](res)
	require.NoError(t, err)
	for i, p := range bodies.Pos {
		assert.GreaterOrEqual(t, p.Y(), 0.0, "body %d fell through the floor", i)
	}

	stats, err := dispatch.Get[Stats](res)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), stats.Frame)
}

func TestNewBodies(t *testing.T) {
	b := NewBodies(3)
	require.Len(t, b.Pos, 3)
	require.Len(t, b.Vel, 3)
	assert.Equal(t, 3.0, b.Pos[2].Y())
	assert.Equal(t, 0.0, b.Vel[2].Len())
}
