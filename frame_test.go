package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrier_NotReadyUntilAdvance(t *testing.T) {
	c := NewClockAt(4)
	fs := NewFrameSync(c)

	b := fs.Sync()
	assert.Equal(t, uint64(4), b.Frame())
	assert.False(t, b.Armed())

	wakes := 0
	wake := func() { wakes++ }
	for range 5 {
		assert.False(t, b.Poll(wake))
	}
	assert.True(t, b.Armed())
	assert.Equal(t, 1, c.Pending(), "armed exactly once")

	c.Advance()
	assert.Equal(t, 1, wakes)
	assert.True(t, b.Poll(wake))

	c.Advance()
	assert.True(t, b.Poll(wake), "stays ready")
	assert.Equal(t, 1, wakes)
}

func TestBarrier_FreshPerFrame(t *testing.T) {
	c := NewClock()
	fs := NewFrameSync(c)

	first := fs.Sync()
	c.Advance()
	second := fs.Sync()

	assert.True(t, first.Poll(func() {}))
	assert.False(t, second.Poll(func() {}))
	assert.Equal(t, uint64(1), fs.Current())
}

func TestBarrier_WaitOutsideSystem(t *testing.T) {
	c := NewClock()
	fs := NewFrameSync(c)

	errCh := make(chan error, 1)
	go func() { errCh <- fs.Wait(context.Background()) }()

	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)
	c.Advance()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after advance")
	}
}

func TestBarrier_WaitCancelled(t *testing.T) {
	fs := NewFrameSync(NewClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, fs.Wait(ctx), context.Canceled)
}

func TestBarrier_WaitAlreadyPassed(t *testing.T) {
	c := NewClock()
	b := NewFrameSync(c).Sync()
	c.Advance()
	assert.NoError(t, b.Wait(context.Background()))
}
