// Package spawn hands out pooled enemy actors and takes them back, on
// request or when they die.
package spawn

import (
	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/core/pool"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/squad"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
)

// Coordinator owns one pool per enemy prototype.
// Accessed only from the game loop goroutine.
type Coordinator struct {
	world *world.World
	bus   *event.Bus
	log   *zap.Logger
	pools *pool.Registry[*data.Prototype, *world.Actor]
	subs  map[*world.Actor]world.Subscription
}

// NewCoordinator builds a coordinator whose pools default to defaults unless
// a prototype carries its own pool capacity.
func NewCoordinator(w *world.World, defaults pool.Capacity, bus *event.Bus, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{
		world: w,
		bus:   bus,
		log:   log,
		subs:  make(map[*world.Actor]world.Subscription, 64),
	}
	c.pools = pool.NewRegistry(defaults, c.hooksFor, log)
	c.pools.CapacityFor = func(p *data.Prototype) (pool.Capacity, bool) {
		if p.Pool == nil {
			return pool.Capacity{}, false
		}
		return *p.Pool, true
	}
	c.pools.NameFor = func(p *data.Prototype) string { return p.Name }
	return c
}

// Pools exposes the per-prototype registry, read by metrics.
func (c *Coordinator) Pools() *pool.Registry[*data.Prototype, *world.Actor] { return c.pools }

func (c *Coordinator) hooksFor(proto *data.Prototype) pool.Hooks[*world.Actor] {
	return pool.Hooks[*world.Actor]{
		Create: func() (*world.Actor, error) {
			return c.world.NewActor(proto)
		},
		OnAcquire: func(a *world.Actor) {
			a.Reset()
		},
		OnRelease: func(a *world.Actor) {
			a.SetActive(false)
			a.SetParent(c.world.Inactive)
			if a.Follow != nil {
				a.Follow.SetTarget(nil)
			}
			if a.Group != nil {
				a.Group.ClearGroup()
			}
		},
		OnDestroy: func(a *world.Actor) {
			c.world.Destroy(a)
		},
	}
}

// Spawn places an actor of proto at pos, facing rot, and activates it.
// Returns false for a nil prototype or when the pool could not create one.
func (c *Coordinator) Spawn(proto *data.Prototype, pos world.Vec3, rot world.Quat) (*world.Actor, bool) {
	if proto == nil {
		c.log.Warn("invalid prototype")
		return nil, false
	}
	a, ok := c.pools.GetOrCreate(proto).Acquire()
	if !ok {
		return nil, false
	}
	a.SetPosition(pos)
	a.SetOrientation(rot)
	a.SetParent(c.world.Active)
	a.SetActive(true)

	if a.Death != nil {
		c.subs[a] = a.Death.Subscribe(c.onDeath)
	}

	event.Emit(c.bus, event.ActorSpawned{
		EntityID:  a.ID,
		Prototype: proto.Name,
		X:         pos.X,
		Y:         pos.Y,
	})
	return a, true
}

// Return hands a to its prototype's pool. An actor that no pool will take
// is destroyed instead. Returning an actor twice does nothing.
func (c *Coordinator) Return(a *world.Actor) {
	if a == nil || a.Proto == nil || a.Destroyed() {
		return
	}
	p, ok := c.pools.Lookup(a.Proto)
	if ok && p.IsFree(a) {
		c.log.Debug("actor already returned", zap.Stringer("actor", a))
		return
	}

	if sub, ok := c.subs[a]; ok {
		a.Death.Unsubscribe(sub)
		delete(c.subs, a)
	}
	if a.Group != nil && a.Group.GroupID() != 0 {
		a.Group.OnMemberTerminalEvent(nil)
	}

	if !ok || !p.Release(a) {
		c.log.Debug("no pool for actor, destroying", zap.Stringer("actor", a))
		c.world.Destroy(a)
	}

	event.Emit(c.bus, event.ActorReturned{
		EntityID:  a.ID,
		Prototype: a.Proto.Name,
		Destroyed: a.Destroyed(),
	})
}

// PrewarmAll fills every prototype's pool with n idle actors.
func (c *Coordinator) PrewarmAll(protos []*data.Prototype, n int) {
	for _, proto := range protos {
		if proto == nil {
			continue
		}
		c.pools.GetOrCreate(proto).Prewarm(n)
	}
}

// SpawnGroup spawns a group's leader and members around the anchor and wires
// their membership: members first, then the leader so its roster snapshot
// sees everyone.
func (c *Coordinator) SpawnGroup(g data.SpawnGroup) (*world.Actor, []*world.Actor, bool) {
	anchor := world.Vec3{X: g.X, Y: g.Y}
	leader, ok := c.Spawn(g.LeaderProto, anchor, world.Identity)
	if !ok {
		return nil, nil, false
	}

	members := make([]*world.Actor, 0, len(g.Members))
	for _, m := range g.Members {
		pos := anchor.Add(world.Vec3{X: m.Offset[0], Y: m.Offset[1]})
		a, ok := c.Spawn(m.Proto, pos, world.Identity)
		if !ok {
			continue
		}
		members = append(members, a)
		if a.Group == nil {
			c.log.Debug("member has no group capability",
				zap.Int("group", g.GroupID),
				zap.Stringer("actor", a),
			)
			continue
		}
		a.Group.InitializeGroup(g.GroupID, false)
	}

	if leader.Group == nil {
		c.log.Warn("group leader has no group capability",
			zap.Int("group", g.GroupID),
			zap.Stringer("actor", leader),
		)
	} else {
		leader.Group.InitializeGroup(g.GroupID, true)
	}

	c.log.Info("group spawned",
		zap.Int("group", g.GroupID),
		zap.Stringer("leader", leader),
		zap.Int("members", len(members)),
	)
	return leader, members, true
}

// onDeath parks the dead actor, spawns its successor if the prototype names
// one, hands group duties over and returns the actor to its pool.
func (c *Coordinator) onDeath(a *world.Actor) {
	if a.Holding != nil {
		a.SetParent(a.Holding)
	}

	var successor *world.Actor
	if next := a.Proto.SuccessorOnDeath; next != nil {
		successor, _ = c.Spawn(next, a.Position(), a.Orientation())
	}

	groupID := 0
	if a.Group != nil {
		groupID = a.Group.GroupID()
		var heir *squad.Member
		if successor != nil {
			heir = successor.Group
		}
		a.Group.OnMemberTerminalEvent(heir)
	}

	ev := event.ActorDied{EntityID: a.ID, Prototype: a.Proto.Name, GroupID: groupID}
	if successor != nil {
		ev.Successor = successor.ID
	}
	event.Emit(c.bus, ev)

	c.Return(a)
}

// Shutdown destroys every idle actor. Active ones stay where they are.
func (c *Coordinator) Shutdown() {
	c.pools.DisposeAll()
}
