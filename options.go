package dispatch

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// FailurePolicy decides what happens to the dispatcher when a system fails.
type FailurePolicy int

const (
	// Retire removes the failed system; every other system keeps running.
	Retire FailurePolicy = iota

	// Halt stops the dispatcher: every later Tick returns ErrHalted.
	Halt
)

// String returns the string representation of the policy.
func (p FailurePolicy) String() string {
	switch p {
	case Retire:
		return "retire"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// ParseFailurePolicy parses "retire" or "halt".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "retire":
		return Retire, nil
	case "halt":
		return Halt, nil
	default:
		return Retire, fmt.Errorf("dispatch: unknown failure policy %q", s)
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithWorkers bounds how many systems of one group are advanced at the same time.
// Values below 1 mean no bound.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

// WithTracer sets the tracer used for tick and group spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithFailurePolicy sets the failure policy. Defaults to Retire.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// RegisterOption configures a single registration.
type RegisterOption func(*registration)

type registration struct {
	name    string
	stage   Stage
	require bool
}

// InStage places the system in the given stage. Defaults to Default.
func InStage(s Stage) RegisterOption {
	return func(r *registration) {
		r.stage = s
	}
}

// Named overrides the system name used in logs, errors and plans.
func Named(name string) RegisterOption {
	return func(r *registration) {
		r.name = name
	}
}

// RequireResources makes Register fail with ErrResourceMissing unless every
// declared resource type is already present in the store passed to it.
func RequireResources() RegisterOption {
	return func(r *registration) {
		r.require = true
	}
}
