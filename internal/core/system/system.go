// Package system orders the work done inside one world tick. The loop
// registers a handful of systems once at startup and the runner fires
// them phase by phase, so tick composition lives in one place instead of
// being spread across a long tick function.
package system

import "time"

// Phase fixes execution order within a tick. Lower runs first.
type Phase int

const (
	PhaseSimulate Phase = iota // advance entity cooldowns and movement
	PhaseSpawn                 // bring back killed entities whose timer expired
	PhasePersist               // periodic database sweeps
)

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
