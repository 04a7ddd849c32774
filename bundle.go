package dispatch

import (
	"fmt"
)

// Installer registers something with a dispatcher. See Add.
type Installer func(d *Dispatcher, res *Resources) error

// Add returns an Installer registering sys with the given options.
func Add[D any](sys System[D], opts ...RegisterOption) Installer {
	return func(d *Dispatcher, res *Resources) error {
		return Register(d, res, sys, opts...)
	}
}

// Bundle groups related resources and systems so a feature can be installed in one call.
//
//	physics := dispatch.NewBundle("physics").
//	    Resource(Gravity{Y: -9.81}).
//	    System(dispatch.Add[IntegrateData](&Integrate{})).
//	    System(dispatch.Add[ReportData](&Report{}, dispatch.InStage(dispatch.After)))
//
//	if err := physics.Install(d, res); err != nil {
//	    return err
//	}
type Bundle struct {
	name      string
	resources []any
	systems   []Installer
}

// NewBundle creates a new bundle with the given name.
func NewBundle(name string) *Bundle {
	return &Bundle{name: name}
}

// Name returns the bundle name.
func (b *Bundle) Name() string {
	return b.name
}

// Resource adds a resource inserted into the store on Install.
// Resources are inserted before any system is registered.
func (b *Bundle) Resource(res any) *Bundle {
	b.resources = append(b.resources, res)
	return b
}

// System adds a system installer.
func (b *Bundle) System(i Installer) *Bundle {
	b.systems = append(b.systems, i)
	return b
}

// Install inserts the bundle's resources into res and registers its systems
// with d in the order they were added.
func (b *Bundle) Install(d *Dispatcher, res *Resources) error {
	for _, r := range b.resources {
		res.Insert(r)
	}
	for _, install := range b.systems {
		if err := install(d, res); err != nil {
			return fmt.Errorf("bundle %s: %w", b.name, err)
		}
	}
	return nil
}
