package world

import (
	"errors"
	"sort"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/squad"
	"go.uber.org/zap"
)

var ErrNilPrototype = errors.New("world: nil prototype")

// World is the host environment: every actor, the active/inactive
// containers, the spatial index and the hooks other packages plug into.
// Accessed only from the game loop goroutine.
type World struct {
	Active   *Container
	Inactive *Container

	// OnKnockback is called for every hit with a positive force.
	OnKnockback func(a *Actor, dir Vec3, force float64)

	ecs    *ecs.World
	groups *squad.Graph
	log    *zap.Logger
	grid   *AOIGrid
	actors map[ecs.EntityID]*Actor
	gates  []func(*Actor) bool
}

func NewWorld(e *ecs.World, groups *squad.Graph, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		Active:   NewContainer("active"),
		Inactive: NewContainer("inactive"),
		ecs:      e,
		groups:   groups,
		log:      log,
		grid:     NewAOIGrid(),
		actors:   make(map[ecs.EntityID]*Actor, 256),
	}
}

func (w *World) ECS() *ecs.World      { return w.ecs }
func (w *World) Groups() *squad.Graph { return w.groups }
func (w *World) Count() int           { return len(w.actors) }

// Actor looks up a live actor by entity id.
func (w *World) Actor(id ecs.EntityID) (*Actor, bool) {
	a, ok := w.actors[id]
	return a, ok
}

// AddActGate adds a predicate every actor must pass to be allowed to attack.
func (w *World) AddActGate(fn func(*Actor) bool) {
	w.gates = append(w.gates, fn)
}

func (w *World) canAct(a *Actor) bool {
	for _, g := range w.gates {
		if !g(a) {
			return false
		}
	}
	return true
}

// NewActor builds an inactive actor parked under the inactive container.
// Capabilities come from the prototype.
func (w *World) NewActor(proto *data.Prototype) (*Actor, error) {
	if proto == nil {
		return nil, ErrNilPrototype
	}
	a := &Actor{
		ID:          w.ecs.CreateEntity(),
		Proto:       proto,
		world:       w,
		orientation: Identity,
		hp:          proto.HP,
		maxHP:       proto.HP,
	}
	if proto.Has(data.CapFollow) {
		a.Follow = &Follower{Speed: proto.Speed}
	}
	if proto.Has(data.CapDeath) {
		a.Death = &DeathSource{}
	}
	if proto.Has(data.CapHolding) {
		a.Holding = NewContainer(proto.Name + ".holding")
	}
	if proto.Has(data.CapGroup) && w.groups != nil {
		a.Group = w.groups.NewMember(a)
	}

	w.actors[a.ID] = a
	w.grid.Add(a, a.position)
	a.SetParent(w.Inactive)
	return a, nil
}

// Destroy removes the actor for good. Its entity id is recycled at the next
// cleanup flush. Safe to call twice.
func (w *World) Destroy(a *Actor) {
	if a == nil || a.destroyed {
		return
	}
	if a.Group != nil {
		a.Group.Detach()
	}
	a.active = false
	a.SetParent(nil)
	w.grid.Remove(a, a.position)
	a.destroyed = true
	delete(w.actors, a.ID)
	w.ecs.MarkForDestruction(a.ID)
	w.log.Debug("actor destroyed", zap.Stringer("actor", a))
}

// ActorsWithin returns active, living actors whose distance to center is at
// most radius, ordered by entity index.
func (w *World) ActorsWithin(center Vec3, radius float64) []*Actor {
	var out []*Actor
	for _, a := range w.grid.Nearby(center, radius) {
		if !a.active || a.dead {
			continue
		}
		if a.position.DistanceTo(center) <= radius {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Index() < out[j].ID.Index() })
	return out
}

// EachActive visits active actors in entity index order.
func (w *World) EachActive(fn func(*Actor)) {
	list := make([]*Actor, 0, w.Active.Len())
	w.Active.Each(func(a *Actor) {
		if a.active {
			list = append(list, a)
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID.Index() < list[j].ID.Index() })
	for _, a := range list {
		fn(a)
	}
}
