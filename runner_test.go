package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_MaxTicks(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, Register[counterData](w.d, w.res, counter(-1)))

	r := NewRunner(w.d, w.res, w.clock, WithTickRate(time.Millisecond), WithMaxTicks(5))
	r.Start(context.Background())
	waitDone(t, r)

	assert.Equal(t, uint64(5), r.Steps())
	assert.Equal(t, uint64(5), w.clock.Current())
	assert.Equal(t, uint32(5), value[uint32](t, w.res))
	assert.NoError(t, r.Err())
}

func TestRunner_StopsWhenSystemsFinish(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, Register[counterData](w.d, w.res, counter(2)))

	r := NewRunner(w.d, w.res, w.clock, WithTickRate(time.Millisecond))
	r.Start(context.Background())
	waitDone(t, r)

	assert.Equal(t, uint64(3), r.Steps())
	assert.Zero(t, w.d.Len())
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, Register[counterData](w.d, w.res, counter(-1)))

	r := NewRunner(w.d, w.res, w.clock, WithTickRate(time.Millisecond))
	r.Stop()

	r.Start(context.Background())
	r.Start(context.Background())
	require.Eventually(t, func() bool { return r.Steps() >= 3 }, 5*time.Second, time.Millisecond)

	r.Stop()
	r.Stop()
	waitDone(t, r)
	assert.NoError(t, r.Err())
}

func TestRunner_StopsOnHalt(t *testing.T) {
	w := newWorld(t, WithFailurePolicy(Halt))
	boom := errors.New("boom")
	failing := SystemFunc[counterData](func(ctx context.Context, data counterData) error {
		if err := data.Frame.Get().Wait(ctx); err != nil {
			return err
		}
		return boom
	})
	require.NoError(t, Register[counterData](w.d, w.res, failing, Named("failing")))
	require.NoError(t, Register[counterData](w.d, w.res, counter(-1), Named("counter")))

	var handled atomic.Int32
	r := NewRunner(w.d, w.res, w.clock,
		WithTickRate(time.Millisecond),
		WithErrorHandler(func(error) { handled.Add(1) }))
	r.Start(context.Background())
	waitDone(t, r)

	var se *SystemError
	require.ErrorAs(t, r.Err(), &se)
	assert.Equal(t, "failing", se.System)
	assert.ErrorIs(t, r.Err(), boom)
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, uint64(2), r.Steps())
}

func TestRunner_ContextCancel(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, Register[counterData](w.d, w.res, counter(-1)))

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(w.d, w.res, w.clock, WithTickRate(time.Millisecond))
	r.Start(ctx)
	cancel()
	waitDone(t, r)

	assert.ErrorIs(t, r.Err(), context.Canceled)
}

func TestRunner_Step(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, Register[counterData](w.d, w.res, counter(-1)))

	r := NewRunner(w.d, w.res, w.clock)
	for range 4 {
		require.NoError(t, r.Step(context.Background()))
	}
	assert.Equal(t, uint32(4), value[uint32](t, w.res))
	assert.Equal(t, uint64(4), w.d.Ticks())
}
