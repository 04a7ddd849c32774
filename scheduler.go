package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// systemState tracks a single registered system.
type systemState struct {
	id     uuid.UUID
	name   string
	stage  Stage
	seq    int
	access AccessMeta
	task   *task
}

// rebuildBatches recomputes the conflict-free groups of a stage.
//
// Systems are placed greedily in registration order: each goes into the
// first group holding nothing it conflicts with. Systems with no declared
// access therefore always land in the first group.
func (d *Dispatcher) rebuildBatches(stage Stage) {
	systems := d.systems[stage]
	if len(systems) == 0 {
		d.batches[stage] = nil
		return
	}

	// Registration order keeps batching deterministic across runs
	sort.SliceStable(systems, func(i, j int) bool {
		return systems[i].seq < systems[j].seq
	})

	debug := d.logger.Enabled(context.Background(), slog.LevelDebug)

	var batches [][]*systemState

	remaining := make([]*systemState, len(systems))
	copy(remaining, systems)

	for len(remaining) > 0 {
		var batch []*systemState
		var nextRemaining []*systemState

		for _, candidate := range remaining {
			conflict := false
			for _, existing := range batch {
				if candidate.access.Conflicts(&existing.access) {
					conflict = true
					if debug {
						d.logger.Debug("dispatch: systems conflict",
							slog.String("stage", stage.String()),
							slog.String("system", candidate.name),
							slog.String("with", existing.name),
							slog.Any("types", d.conflictTypes(&candidate.access, &existing.access)))
					}
					break
				}
			}

			if !conflict {
				batch = append(batch, candidate)
			} else {
				nextRemaining = append(nextRemaining, candidate)
			}
		}

		batches = append(batches, batch)
		remaining = nextRemaining
	}

	d.batches[stage] = batches

	d.logger.Debug("dispatch: rebuilt batches",
		slog.String("stage", stage.String()),
		slog.Int("systems", len(systems)),
		slog.Int("groups", len(batches)))
}

// conflictTypes names the resource types that keep a and b apart.
func (d *Dispatcher) conflictTypes(a, b *AccessMeta) []string {
	overlap := a.overlap(b)
	ids := overlap.IDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, d.registry.typeOf(id).String())
	}
	return names
}

// runGroup advances every due member of a group until each suspends or completes.
// Members run in parallel, bounded by the worker limit. Returns the members
// that completed this tick and the failures they reported.
func (d *Dispatcher) runGroup(ctx context.Context, stage Stage, index int, group []*systemState) (done []*systemState, errs []error) {
	due := make([]*systemState, 0, len(group))
	for _, s := range group {
		if s.task.due() {
			due = append(due, s)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}

	_, span := d.tracer.Start(ctx, "dispatch.group", trace.WithAttributes(
		attribute.String("dispatch.stage", stage.String()),
		attribute.Int("dispatch.group", index),
		attribute.Int("dispatch.systems", len(due)),
	))
	defer span.End()

	results := make([]outcome, len(due))

	var g errgroup.Group
	if d.workers > 0 {
		g.SetLimit(d.workers)
	}
	for i, s := range due {
		g.Go(func() error {
			results[i] = s.task.advance()
			return nil
		})
	}
	_ = g.Wait()

	for i, s := range due {
		o := results[i]
		if !o.done {
			continue
		}
		done = append(done, s)
		if o.err != nil {
			errs = append(errs, &SystemError{System: s.name, ID: s.id, Tick: d.tickNumber, Err: o.err})
		}
	}

	if len(errs) > 0 {
		span.SetAttributes(attribute.Int("dispatch.failures", len(errs)))
	}
	return done, errs
}

// retire removes completed systems and rebuilds the affected stages.
func (d *Dispatcher) retire(done []*systemState) {
	if len(done) == 0 {
		return
	}

	gone := make(map[*systemState]struct{}, len(done))
	var touched [stageCount]bool
	for _, s := range done {
		gone[s] = struct{}{}
		touched[s.stage] = true
		d.logger.Info("dispatch: system retired",
			slog.String("system", s.name),
			slog.String("id", s.id.String()),
			slog.Uint64("tick", d.tickNumber))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for stage := Before; stage < stageCount; stage++ {
		if !touched[stage] {
			continue
		}
		kept := d.systems[stage][:0]
		for _, s := range d.systems[stage] {
			if _, ok := gone[s]; !ok {
				kept = append(kept, s)
			}
		}
		for i := len(kept); i < len(d.systems[stage]); i++ {
			d.systems[stage][i] = nil
		}
		d.systems[stage] = kept
		d.rebuildBatches(stage)
	}
}

// GroupPlan lists the systems of one conflict-free group.
type GroupPlan struct {
	Systems []string
}

// StagePlan lists the groups of one stage in execution order.
type StagePlan struct {
	Stage  Stage
	Groups []GroupPlan
}

// Plan returns the current execution plan: stages in order, each with its
// groups in the order they run. Systems within a group may run in parallel.
func (d *Dispatcher) Plan() []StagePlan {
	d.mu.Lock()
	defer d.mu.Unlock()

	var plan []StagePlan
	for stage := Before; stage < stageCount; stage++ {
		if len(d.batches[stage]) == 0 {
			continue
		}
		sp := StagePlan{Stage: stage}
		for _, batch := range d.batches[stage] {
			gp := GroupPlan{Systems: make([]string, 0, len(batch))}
			for _, s := range batch {
				gp.Systems = append(gp.Systems, s.name)
			}
			sp.Groups = append(sp.Groups, gp)
		}
		plan = append(plan, sp)
	}
	return plan
}

// FormatPlan renders a plan as indented text, one group per line.
func FormatPlan(plan []StagePlan) string {
	var out []byte
	for _, sp := range plan {
		out = fmt.Appendf(out, "%s\n", sp.Stage)
		for i, gp := range sp.Groups {
			out = fmt.Appendf(out, "  group %d:", i)
			for _, name := range gp.Systems {
				out = fmt.Appendf(out, " %s", name)
			}
			out = append(out, '\n')
		}
	}
	return string(out)
}
