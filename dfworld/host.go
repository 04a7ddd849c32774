// Package dfworld runs a dispatcher inside a Dragonfly world transaction.
//
// Each step of a Host advances its clock and then executes one dispatcher
// tick within a world transaction. The transaction is exposed to systems as
// the Tx resource for the duration of that tick only:
//
//	type Data struct {
//	    Frame dispatch.Read[dispatch.FrameSync]
//	    World dispatch.Read[dfworld.Tx]
//	}
package dfworld

import (
	"context"
	"log/slog"

	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/dispatch"
)

// Tx is the resource holding the world transaction of the running tick.
// Outside a tick its Tx field is nil.
type Tx struct {
	Tx *world.Tx
}

// Valid reports whether the transaction is usable.
func (t Tx) Valid() bool {
	return t.Tx != nil
}

// Executor runs f inside a world transaction and returns once f has returned.
type Executor interface {
	Exec(f func(tx *world.Tx))
}

// World adapts a *world.World to Executor.
type World struct {
	W *world.World
}

// Exec implements Executor.
func (w World) Exec(f func(tx *world.Tx)) {
	<-w.W.Exec(f)
}

// Host steps a dispatcher inside world transactions.
type Host struct {
	exec       Executor
	dispatcher *dispatch.Dispatcher
	resources  *dispatch.Resources
	clock      *dispatch.Clock
	logger     *slog.Logger
}

// NewHost creates a host. It inserts an empty Tx resource into res so
// systems registered with dispatch.RequireResources may declare it.
func NewHost(exec Executor, d *dispatch.Dispatcher, res *dispatch.Resources, clock *dispatch.Clock, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	dispatch.Insert(res, Tx{})
	return &Host{
		exec:       exec,
		dispatcher: d,
		resources:  res,
		clock:      clock,
		logger:     logger,
	}
}

// Step advances the clock and runs one dispatcher tick inside a transaction.
func (h *Host) Step(ctx context.Context) error {
	h.clock.Advance()

	var err error
	h.exec.Exec(func(tx *world.Tx) {
		dispatch.Insert(h.resources, Tx{Tx: tx})
		defer dispatch.Insert(h.resources, Tx{})

		err = h.dispatcher.Tick(ctx, h.resources)
	})
	if err != nil {
		h.logger.Debug("dfworld: tick reported errors", slog.Any("error", err))
	}
	return err
}
