package event

import "github.com/l1jgo/horde/internal/core/ecs"

// Actor lifecycle events, emitted by the spawn coordinator.

type ActorSpawned struct {
	EntityID  ecs.EntityID
	Prototype string
	X, Y      float64
}

type ActorDied struct {
	EntityID  ecs.EntityID
	Prototype string
	GroupID   int
	// Successor is zero unless a derived actor was spawned on death.
	Successor ecs.EntityID
}

type ActorReturned struct {
	EntityID  ecs.EntityID
	Prototype string
	// Destroyed is true when no pool would take the actor back.
	Destroyed bool
}

// Attack chain events, emitted by the squad layer.

type ChainStarted struct {
	GroupID int
	ChainID int
	Turns   int
}

type ChainEnded struct {
	GroupID   int
	ChainID   int
	Cancelled bool
}

// Effect events.

type EffectExpired struct {
	EntityID ecs.EntityID
	Kind     string
}
