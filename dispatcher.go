package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/oriumgames/dispatch"

// Dispatcher owns a set of systems and drives them forward one tick at a time.
//
// Each tick the dispatcher points its Reference at the caller's store, then
// advances every due system stage by stage and group by group. Systems in the
// same group have no conflicting declared access and run in parallel; the
// next group only starts once every member of the current one has suspended
// or completed. The Reference is cleared when the tick ends.
type Dispatcher struct {
	ref      *Reference
	registry *resourceRegistry

	// System management
	systems [stageCount][]*systemState
	batches [stageCount][][]*systemState
	nextSeq int
	mu      sync.Mutex

	// Execution state
	tickMu     sync.Mutex
	tickNumber uint64
	started    atomic.Bool
	halted     atomic.Bool
	closed     atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	tasks      sync.WaitGroup
	wakeCh     chan struct{}

	// Configuration
	logger  *slog.Logger
	tracer  trace.Tracer
	workers int
	policy  FailurePolicy
}

// New creates a dispatcher.
func New(opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		ref:      NewReference(),
		registry: newResourceRegistry(),
		ctx:      ctx,
		cancel:   cancel,
		wakeCh:   make(chan struct{}, 1),
		logger:   slog.Default(),
		tracer:   otel.Tracer(instrumentationName),
		workers:  runtime.GOMAXPROCS(0),
		policy:   Retire,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds sys to the dispatcher.
//
// The system's data type D is analyzed once: every Read and Write handle it
// contains is added to the system's declared access and bound to the
// dispatcher's Reference. Resources may be inserted into the store at any
// point before the first Tick; a missing resource surfaces as
// ErrResourceMissing when a handle is dereferenced. With RequireResources,
// every declared type must already be present in res instead.
//
// The system does not start running until the first Tick. Register fails with
// ErrRegisterAfterStart once the dispatcher has ticked.
func Register[D any](d *Dispatcher, res *Resources, sys System[D], opts ...RegisterOption) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if d.started.Load() {
		return ErrRegisterAfterStart
	}

	reg := registration{name: systemName(sys), stage: Default}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.stage < Before || reg.stage >= stageCount {
		return fmt.Errorf("dispatch: system %s: invalid stage %d", reg.name, reg.stage)
	}

	meta, err := analyzeData(reflect.TypeFor[D]())
	if err != nil {
		return fmt.Errorf("dispatch: system %s: %w", reg.name, err)
	}

	if reg.require && res != nil {
		for _, spec := range append(append([]AccessSpec(nil), meta.Reads...), meta.Writes...) {
			if !res.Has(spec.Type) {
				return &AccessError{Kind: ErrResourceMissing, Type: spec.Type, Mode: spec.Mode, System: reg.name}
			}
		}
	}

	state := &systemState{
		id:     uuid.New(),
		name:   reg.name,
		stage:  reg.stage,
		access: newAccessMeta(meta.Reads, meta.Writes, d.registry),
	}
	binding := &Binding{ref: d.ref, access: &state.access, system: reg.name}

	data := new(D)
	meta.bind(unsafe.Pointer(data), binding)

	state.task = newTask(d.ctx, binding, func(ctx context.Context) error {
		return sys.Run(ctx, *data)
	}, d.notify, &d.tasks)

	d.mu.Lock()
	state.seq = d.nextSeq
	d.nextSeq++
	d.systems[state.stage] = append(d.systems[state.stage], state)
	d.rebuildBatches(state.stage)
	d.mu.Unlock()

	d.logger.Debug("dispatch: system registered",
		slog.String("system", state.name),
		slog.String("id", state.id.String()),
		slog.String("stage", state.stage.String()),
		slog.Int("reads", len(state.access.Reads)),
		slog.Int("writes", len(state.access.Writes)),
		slog.Int("resource_types", d.registry.count()))

	return nil
}

// Tick runs one iteration of the dispatcher against res.
//
// Every system that has not started yet, or whose frame barrier was woken by
// the tick source, is advanced to its next suspension point. Failed systems
// are reported as *SystemError values joined into the returned error.
//
// If ctx ends between groups the remaining groups are skipped and ctx.Err()
// is returned; skipped systems stay due for the next tick.
func (d *Dispatcher) Tick(ctx context.Context, res *Resources) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if d.halted.Load() {
		return ErrHalted
	}

	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	// Close may have run while this Tick waited for the lock
	if d.closed.Load() {
		return ErrClosed
	}

	d.started.Store(true)
	d.tickNumber++

	ctx, span := d.tracer.Start(ctx, "dispatch.tick", trace.WithAttributes(
		attribute.Int64("dispatch.tick", int64(d.tickNumber)),
	))
	defer span.End()

	d.mu.Lock()
	batches := d.batches
	d.mu.Unlock()

	var done []*systemState
	var errs []error

	d.ref.PointAt(res)
stages:
	for stage := Before; stage < stageCount; stage++ {
		for i, group := range batches[stage] {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break stages
			}
			finished, failures := d.runGroup(ctx, stage, i, group)
			done = append(done, finished...)
			errs = append(errs, failures...)
		}
	}
	d.ref.Clear()

	for _, err := range errs {
		var se *SystemError
		if !errors.As(err, &se) {
			continue
		}
		d.logger.Error("dispatch: system failed",
			slog.String("system", se.System),
			slog.String("id", se.ID.String()),
			slog.Uint64("tick", se.Tick),
			slog.Any("error", se.Err))
		if d.policy == Halt {
			d.halted.Store(true)
		}
	}

	d.retire(done)

	if len(errs) > 0 {
		span.SetAttributes(attribute.Int("dispatch.errors", len(errs)))
	}
	return errors.Join(errs...)
}

// Run ticks the dispatcher until every system has completed, ctx ends or the
// dispatcher halts. Between ticks Run waits for the tick source to wake at
// least one system.
//
// Failures under the Retire policy do not stop Run; they are joined into the
// returned error.
func (d *Dispatcher) Run(ctx context.Context, res *Resources) error {
	var errs []error
	for {
		err := d.Tick(ctx, res)
		if err != nil {
			errs = append(errs, err)
		}
		if errors.Is(err, ErrClosed) || d.halted.Load() {
			return errors.Join(errs...)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(err, ctxErr) {
				errs = append(errs, ctxErr)
			}
			return errors.Join(errs...)
		}
		if d.Len() == 0 {
			return errors.Join(errs...)
		}
		if d.anyDue() {
			continue
		}

		select {
		case <-d.wakeCh:
		case <-d.ctx.Done():
			return errors.Join(append(errs, ErrClosed)...)
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		}
	}
}

// Close cancels every in-flight system and waits for their goroutines to exit.
// Frame barriers inside systems return context.Canceled; systems are expected
// to return when they do. Close must not be called from inside a system.
func (d *Dispatcher) Close() {
	if d.closed.Swap(true) {
		return
	}

	d.tickMu.Lock()
	d.cancel()
	d.tickMu.Unlock()

	d.tasks.Wait()
}

// Len returns the number of live systems.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for stage := Before; stage < stageCount; stage++ {
		n += len(d.systems[stage])
	}
	return n
}

// Ticks returns the number of ticks run so far.
func (d *Dispatcher) Ticks() uint64 {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	return d.tickNumber
}

// Halted reports whether a failure under the Halt policy stopped the dispatcher.
func (d *Dispatcher) Halted() bool {
	return d.halted.Load()
}

// Reference returns the dispatcher's resource reference.
func (d *Dispatcher) Reference() *Reference {
	return d.ref
}

// SystemInfo describes a registered system.
type SystemInfo struct {
	ID     uuid.UUID
	Name   string
	Stage  Stage
	Reads  []reflect.Type
	Writes []reflect.Type
}

// Systems returns the live systems in stage and registration order.
func (d *Dispatcher) Systems() []SystemInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	var infos []SystemInfo
	for stage := Before; stage < stageCount; stage++ {
		for _, s := range d.systems[stage] {
			infos = append(infos, SystemInfo{
				ID:     s.id,
				Name:   s.name,
				Stage:  s.stage,
				Reads:  append([]reflect.Type(nil), s.access.Reads...),
				Writes: append([]reflect.Type(nil), s.access.Writes...),
			})
		}
	}
	return infos
}

// notify wakes a Run loop waiting between ticks.
func (d *Dispatcher) notify() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) anyDue() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for stage := Before; stage < stageCount; stage++ {
		for _, s := range d.systems[stage] {
			if s.task.due() {
				return true
			}
		}
	}
	return false
}
