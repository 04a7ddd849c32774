package dispatch

import "fmt"

// Stage orders systems within a tick.
// All groups of a stage finish before the first group of the next stage starts.
type Stage int

const (
	// Before runs first. Input sampling, clocks, anything later systems read.
	Before Stage = iota

	// Default is where most systems live.
	Default

	// After runs last. Reporting, snapshots, cleanup.
	After

	// stageCount is the total number of stages.
	stageCount
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case Before:
		return "Before"
	case Default:
		return "Default"
	case After:
		return "After"
	default:
		return "Unknown"
	}
}

// ParseStage parses a stage name as returned by String.
func ParseStage(name string) (Stage, error) {
	for s := Before; s < stageCount; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return Default, fmt.Errorf("dispatch: unknown stage %q", name)
}
