package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner drives a Dispatcher at a fixed tick rate.
// Every step advances the Clock, which wakes systems waiting at frame
// barriers, then ticks the Dispatcher against the Runner's store.
type Runner struct {
	dispatcher *Dispatcher
	resources  *Resources
	clock      *Clock

	tickRate time.Duration
	maxTicks uint64
	onError  func(error)

	// Execution state
	running  atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	steps    atomic.Uint64
	err      error
	errMu    sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickRate sets the interval between ticks. Defaults to 50ms (20 TPS).
func WithTickRate(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.tickRate = d
		}
	}
}

// WithMaxTicks stops the runner after n steps. Zero means no limit.
func WithMaxTicks(n uint64) RunnerOption {
	return func(r *Runner) {
		r.maxTicks = n
	}
}

// WithErrorHandler is called with every non-nil tick error.
// By default tick errors are logged by the dispatcher and otherwise ignored.
func WithErrorHandler(fn func(error)) RunnerOption {
	return func(r *Runner) {
		r.onError = fn
	}
}

// NewRunner creates a runner. The clock must be the tick source behind the
// FrameSync resource stored in res.
func NewRunner(d *Dispatcher, res *Resources, clock *Clock, opts ...RunnerOption) *Runner {
	r := &Runner{
		dispatcher: d,
		resources:  res,
		clock:      clock,
		tickRate:   50 * time.Millisecond,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Step advances the clock and runs one dispatcher tick.
func (r *Runner) Step(ctx context.Context) error {
	r.clock.Advance()
	r.steps.Add(1)
	return r.dispatcher.Tick(ctx, r.resources)
}

// Steps returns the number of steps taken.
func (r *Runner) Steps() uint64 {
	return r.steps.Load()
}

// Start begins the tick loop on a new goroutine.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return // Already running
	}
	go r.tickLoop(ctx)
}

// Stop stops the tick loop and waits for the current tick to finish.
func (r *Runner) Stop() {
	if !r.running.Load() {
		return
	}
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// Done is closed when the tick loop exits.
func (r *Runner) Done() <-chan struct{} {
	return r.doneCh
}

// Err returns the error that ended the tick loop, if any.
func (r *Runner) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// tickLoop is the main runner loop.
func (r *Runner) tickLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return

		case <-ctx.Done():
			r.setErr(ctx.Err())
			return

		case <-ticker.C:
			err := r.Step(ctx)
			if err != nil && r.onError != nil {
				r.onError(err)
			}
			if errors.Is(err, ErrHalted) || errors.Is(err, ErrClosed) || r.dispatcher.Halted() {
				r.setErr(err)
				r.dispatcher.logger.Warn("dispatch: runner stopped", slog.Any("error", err))
				return
			}
			if r.maxTicks > 0 && r.steps.Load() >= r.maxTicks {
				return
			}
			if r.dispatcher.Len() == 0 {
				return
			}
		}
	}
}

func (r *Runner) setErr(err error) {
	r.errMu.Lock()
	r.err = err
	r.errMu.Unlock()
}
