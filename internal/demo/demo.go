// Package demo is a small particle simulation used by dispatchd.
//
// Bodies fall under gravity and bounce off the floor, two counters race on a
// shared uint32, and an observer summarizes the world after every tick.
package demo

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/oriumgames/dispatch"
)

// Gravity is the constant acceleration applied to every body.
type Gravity struct {
	Accel mgl64.Vec3
}

// Timestep is the simulated time per tick, in seconds.
type Timestep struct {
	Dt float64
}

// Bodies holds positions and velocities of every simulated body.
type Bodies struct {
	Pos []mgl64.Vec3
	Vel []mgl64.Vec3
}

// Stats is the observer's summary of the last tick.
type Stats struct {
	Frame   uint64
	Count   uint32
	Energy  float64
	Highest float64
}

// NewBodies spreads n bodies along the X axis at increasing heights.
func NewBodies(n int) Bodies {
	b := Bodies{
		Pos: make([]mgl64.Vec3, n),
		Vel: make([]mgl64.Vec3, n),
	}
	for i := range n {
		b.Pos[i] = mgl64.Vec3{float64(i), float64(i + 1), 0}
	}
	return b
}

// Integrate advances bodies by one timestep and bounces them off y=0.
type Integrate struct {
	// Restitution scales the velocity of a body hitting the floor.
	Restitution float64
}

// IntegrateData is the resource access of Integrate.
type IntegrateData struct {
	Frame    dispatch.Read[dispatch.FrameSync]
	Gravity  dispatch.Read[Gravity]
	Timestep dispatch.Read[Timestep]
	Bodies   dispatch.Write[Bodies]
}

// Run implements dispatch.System.
func (s *Integrate) Run(ctx context.Context, data IntegrateData) error {
	for {
		g := data.Gravity.Get().Accel
		dt := data.Timestep.Get().Dt
		bodies := data.Bodies.Get()

		for i := range bodies.Pos {
			bodies.Vel[i] = bodies.Vel[i].Add(g.Mul(dt))
			bodies.Pos[i] = bodies.Pos[i].Add(bodies.Vel[i].Mul(dt))
			if bodies.Pos[i].Y() < 0 {
				bodies.Pos[i][1] = -bodies.Pos[i].Y()
				bodies.Vel[i][1] = -bodies.Vel[i].Y() * s.Restitution
			}
		}

		if err := data.Frame.Get().Wait(ctx); err != nil {
			return err
		}
	}
}

// Counter increments the shared uint32 once per tick.
type Counter struct {
	Label string
}

// CounterData is the resource access of Counter.
type CounterData struct {
	Frame dispatch.Read[dispatch.FrameSync]
	Count dispatch.Write[uint32]
}

// Name implements dispatch.Namer.
func (s *Counter) Name() string {
	return "counter-" + s.Label
}

// Run implements dispatch.System.
func (s *Counter) Run(ctx context.Context, data CounterData) error {
	for {
		*data.Count.Get()++
		if err := data.Frame.Get().Wait(ctx); err != nil {
			return err
		}
	}
}

// Observer summarizes the world into Stats.
type Observer struct {
	// Report is called with every new summary, if set.
	Report func(Stats)
}

// ObserverData is the resource access of Observer.
type ObserverData struct {
	Frame  dispatch.Read[dispatch.FrameSync]
	Bodies dispatch.Read[Bodies]
	Count  dispatch.Read[uint32]
	Stats  dispatch.Write[Stats]
}

// Run implements dispatch.System.
func (s *Observer) Run(ctx context.Context, data ObserverData) error {
	for {
		frame := data.Frame.Get()
		bodies := data.Bodies.Get()

		stats := Stats{
			Frame: frame.Current(),
			Count: *data.Count.Get(),
		}
		for i := range bodies.Pos {
			v := bodies.Vel[i]
			stats.Energy += 0.5 * v.Dot(v)
			if y := bodies.Pos[i].Y(); y > stats.Highest {
				stats.Highest = y
			}
		}
		data.Stats.Set(stats)

		if s.Report != nil {
			s.Report(stats)
		}

		if err := frame.Wait(ctx); err != nil {
			return err
		}
	}
}

// String formats the summary for logs.
func (s Stats) String() string {
	return fmt.Sprintf("frame=%d count=%d energy=%.3f highest=%.3f", s.Frame, s.Count, s.Energy, s.Highest)
}

// Bundle returns the demo simulation: resources plus every system.
// The FrameSync resource is not included; the caller owns the tick source.
func Bundle(bodies int, report func(Stats)) *dispatch.Bundle {
	return dispatch.NewBundle("demo").
		Resource(Gravity{Accel: mgl64.Vec3{0, -9.81, 0}}).
		Resource(Timestep{Dt: 0.05}).
		Resource(NewBodies(bodies)).
		Resource(uint32(0)).
		Resource(Stats{}).
		System(dispatch.Add[IntegrateData](&Integrate{Restitution: 0.8})).
		System(dispatch.Add[CounterData](&Counter{Label: "a"})).
		System(dispatch.Add[CounterData](&Counter{Label: "b"})).
		System(dispatch.Add[ObserverData](&Observer{Report: report}, dispatch.InStage(dispatch.After)))
}
