package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: swap + dispatch last tick's events
	PhaseUpdate                  // 1: status effects, attack chains
	PhasePostUpdate              // 2: effect lifetimes, spawning
	PhasePersist                 // 3: journal flush, metrics snapshot
	PhaseCleanup                 // 4: destroy queued entities
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
