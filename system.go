package dispatch

import (
	"context"
	"reflect"
)

// System is a unit of behavior that runs across many ticks.
//
// Run is called once, on the system's first tick, with its data bound: every
// Read and Write handle inside data resolves through the dispatcher's
// Reference. Run is expected to loop, suspending at a frame barrier once per
// iteration so the dispatcher regains control:
//
//	func (s *Counter) Run(ctx context.Context, data CounterData) error {
//	    for {
//	        if err := data.Frame.Get().Wait(ctx); err != nil {
//	            return err
//	        }
//	        *data.Count.Get()++
//	    }
//	}
//
// A system that returns is retired. A system that never suspends blocks the
// whole tick.
type System[D any] interface {
	Run(ctx context.Context, data D) error
}

// SystemFunc adapts a function to a System.
type SystemFunc[D any] func(ctx context.Context, data D) error

// Run calls f.
func (f SystemFunc[D]) Run(ctx context.Context, data D) error {
	return f(ctx, data)
}

// Namer is implemented by systems that provide their own name for logs and plans.
type Namer interface {
	Name() string
}

// systemName returns the name used for sys in logs, errors and plans.
func systemName(sys any) string {
	if n, ok := sys.(Namer); ok {
		return n.Name()
	}
	t := reflect.TypeOf(sys)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
