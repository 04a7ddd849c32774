package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

type taskKey struct{}

// outcome is what a task reports back when it hands control to the dispatcher.
type outcome struct {
	done bool
	err  error
}

// task runs a system's unit of work on its own goroutine while keeping
// execution strictly cooperative: at any instant either the dispatcher or the
// task goroutine is running, never both. The dispatcher resumes the task with
// advance; the task hands control back with suspend or by returning.
type task struct {
	ctx     context.Context
	run     func(ctx context.Context) error
	binding *Binding

	resume chan struct{}
	yield  chan outcome

	started atomic.Bool
	woken   atomic.Bool
	notify  func()

	wg *sync.WaitGroup
}

func newTask(ctx context.Context, binding *Binding, run func(ctx context.Context) error, notify func(), wg *sync.WaitGroup) *task {
	t := &task{
		binding: binding,
		run:     run,
		resume:  make(chan struct{}),
		yield:   make(chan outcome),
		notify:  notify,
		wg:      wg,
	}
	t.ctx = context.WithValue(ctx, taskKey{}, t)
	return t
}

// taskFrom returns the task running on ctx, or nil outside a system.
func taskFrom(ctx context.Context) *task {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(taskKey{}).(*task)
	return t
}

// due reports whether the dispatcher should advance the task this tick.
func (t *task) due() bool {
	return !t.started.Load() || t.woken.Load()
}

// wake marks the task as ready to resume. Called by the tick source.
func (t *task) wake() {
	t.woken.Store(true)
	if t.notify != nil {
		t.notify()
	}
}

// advance runs the task until it suspends or completes.
// Only the dispatcher calls advance, and never concurrently for the same task.
func (t *task) advance() outcome {
	if !t.started.Swap(true) {
		if t.wg != nil {
			t.wg.Add(1)
		}
		go t.main()
	} else {
		t.woken.Store(false)
		select {
		case t.resume <- struct{}{}:
		case <-t.ctx.Done():
			return outcome{done: true, err: t.ctx.Err()}
		}
	}

	select {
	case o := <-t.yield:
		return o
	case <-t.ctx.Done():
		return outcome{done: true, err: t.ctx.Err()}
	}
}

// suspend hands control back to the dispatcher and blocks until resumed.
// Called from the task goroutine only.
func (t *task) suspend() error {
	select {
	case t.yield <- outcome{}:
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
	select {
	case <-t.resume:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

func (t *task) main() {
	if t.wg != nil {
		defer t.wg.Done()
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		select {
		case t.yield <- outcome{done: true, err: err}:
		case <-t.ctx.Done():
		}
	}()

	err = t.run(t.ctx)
}
