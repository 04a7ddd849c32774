package dispatch

import (
	"context"
	"sync"
)

// TickSource supplies the frame counter that frame barriers wait on.
type TickSource interface {
	// Current returns the current tick counter.
	Current() uint64

	// Notify registers wake to be invoked once, after the counter has
	// advanced past frame. If it already has, wake is invoked immediately.
	Notify(frame uint64, wake func())
}

// FrameSync is the resource systems read to suspend until the next tick.
//
//	type Data struct {
//	    Frame dispatch.Read[dispatch.FrameSync]
//	}
type FrameSync struct {
	source TickSource
}

// NewFrameSync creates a FrameSync over source.
func NewFrameSync(source TickSource) FrameSync {
	return FrameSync{source: source}
}

// Current returns the tick counter of the underlying source.
func (f FrameSync) Current() uint64 {
	return f.source.Current()
}

// Sync returns a fresh barrier bound to the current tick.
func (f FrameSync) Sync() *Barrier {
	return &Barrier{
		source: f.source,
		frame:  f.source.Current(),
	}
}

// Wait suspends until the next tick. Shorthand for Sync().Wait(ctx).
func (f FrameSync) Wait(ctx context.Context) error {
	return f.Sync().Wait(ctx)
}

// Barrier is a one-shot suspension point that becomes ready once the tick
// counter advances past the frame it was created on.
//
// A barrier is armed on its first poll, when it registers a wake callback
// with the tick source. Once ready it stays ready. It is not restartable:
// systems call Sync anew for every frame.
type Barrier struct {
	source TickSource
	frame  uint64
	armed  bool
	ready  bool
}

// Frame returns the tick the barrier was created on.
func (b *Barrier) Frame() uint64 {
	return b.frame
}

// Armed reports whether the barrier has registered its wake callback.
func (b *Barrier) Armed() bool {
	return b.armed
}

// Poll arms the barrier with wake on first call and reports whether the
// counter has advanced past the barrier's frame.
func (b *Barrier) Poll(wake func()) bool {
	if b.ready {
		return true
	}
	if !b.armed {
		b.armed = true
		b.source.Notify(b.frame, wake)
	}
	if b.source.Current() > b.frame {
		b.ready = true
	}
	return b.ready
}

// Wait suspends until the barrier is ready.
//
// Inside a system, Wait hands control back to the dispatcher, which resumes
// the system on the first tick after the source wakes it. Anywhere else,
// Wait blocks the calling goroutine. Either way it returns ctx.Err() if ctx
// ends first.
func (b *Barrier) Wait(ctx context.Context) error {
	if t := taskFrom(ctx); t != nil {
		for !b.Poll(t.wake) {
			if err := t.suspend(); err != nil {
				return err
			}
		}
		return nil
	}

	ch := make(chan struct{})
	var once sync.Once
	if b.Poll(func() { once.Do(func() { close(ch) }) }) {
		return nil
	}
	select {
	case <-ch:
		b.ready = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
