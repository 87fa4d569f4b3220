// Package effect runs pooled short-lived area effects: lightning strikes,
// fire patches and the telegraphs that announce them.
package effect

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/core/pool"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
)

// Effect is one pooled effect instance.
type Effect struct {
	ID    ecs.EntityID
	Proto *data.EffectProto

	pos       world.Vec3
	age       time.Duration
	sinceTick time.Duration
	strikes   int
	live      bool
}

func (e *Effect) Position() world.Vec3 { return e.pos }
func (e *Effect) Age() time.Duration   { return e.age }
func (e *Effect) Strikes() int         { return e.strikes }
func (e *Effect) Live() bool           { return e.live }

// Spawner owns one pool per effect prototype and ages live effects each tick.
// Accessed only from the game loop goroutine.
type Spawner struct {
	world *world.World
	table *data.EffectTable
	bus   *event.Bus
	log   *zap.Logger
	pools *pool.Registry[*data.EffectProto, *Effect]
	live  []*Effect
}

func NewSpawner(w *world.World, table *data.EffectTable, defaults pool.Capacity, bus *event.Bus, log *zap.Logger) *Spawner {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Spawner{
		world: w,
		table: table,
		bus:   bus,
		log:   log,
		live:  make([]*Effect, 0, 32),
	}
	s.pools = pool.NewRegistry(defaults, s.hooksFor, log)
	s.pools.CapacityFor = func(p *data.EffectProto) (pool.Capacity, bool) {
		if p.Pool == nil {
			return pool.Capacity{}, false
		}
		return *p.Pool, true
	}
	s.pools.NameFor = func(p *data.EffectProto) string { return "effect." + p.Kind }
	return s
}

func (s *Spawner) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// Pools exposes the per-kind registry, read by metrics.
func (s *Spawner) Pools() *pool.Registry[*data.EffectProto, *Effect] { return s.pools }

// LiveCount returns how many effects are currently running.
func (s *Spawner) LiveCount() int { return len(s.live) }

func (s *Spawner) hooksFor(proto *data.EffectProto) pool.Hooks[*Effect] {
	ecsWorld := s.world.ECS()
	return pool.Hooks[*Effect]{
		Create: func() (*Effect, error) {
			return &Effect{ID: ecsWorld.CreateEntity(), Proto: proto}, nil
		},
		OnAcquire: func(e *Effect) {
			e.age, e.sinceTick, e.strikes = 0, 0, 0
			e.live = true
		},
		OnRelease: func(e *Effect) {
			e.live = false
		},
		OnDestroy: func(e *Effect) {
			ecsWorld.MarkForDestruction(e.ID)
		},
	}
}

// Spawn starts an effect of the named kind at pos. Unknown kinds are logged
// and ignored.
func (s *Spawner) Spawn(kind string, pos world.Vec3) (*Effect, bool) {
	proto := s.table.Get(kind)
	if proto == nil {
		s.log.Warn("unknown effect kind", zap.String("kind", kind))
		return nil, false
	}
	return s.SpawnProto(proto, pos)
}

// SpawnProto starts an effect from a resolved prototype. Damaging effects
// strike once immediately.
func (s *Spawner) SpawnProto(proto *data.EffectProto, pos world.Vec3) (*Effect, bool) {
	if proto == nil {
		s.log.Warn("invalid effect prototype")
		return nil, false
	}
	e, ok := s.pools.GetOrCreate(proto).Acquire()
	if !ok {
		return nil, false
	}
	e.pos = pos
	s.live = append(s.live, e)
	s.strike(e)
	return e, true
}

// Update ages every live effect, repeats tick damage and retires effects
// whose lifetime has run out. An expiring effect with a follow-up kind
// spawns it in place.
func (s *Spawner) Update(dt time.Duration) {
	if len(s.live) == 0 {
		return
	}
	current := make([]*Effect, len(s.live))
	copy(current, s.live)

	for _, e := range current {
		e.age += dt
		if iv := e.Proto.TickInterval; iv > 0 {
			e.sinceTick += dt
			for e.sinceTick >= iv {
				e.sinceTick -= iv
				s.strike(e)
			}
		}
		if e.age >= e.Proto.Lifetime {
			s.expire(e)
		}
	}
}

func (s *Spawner) strike(e *Effect) {
	p := e.Proto
	if p.Damage <= 0 && p.Knockback <= 0 {
		return
	}
	e.strikes++
	for _, a := range s.world.ActorsWithin(e.pos, p.Radius) {
		a.ApplyDamage(p.Damage, p.DamageType, a.Position().Sub(e.pos), p.Knockback)
	}
}

func (s *Spawner) expire(e *Effect) {
	for i, other := range s.live {
		if other == e {
			s.live = append(s.live[:i], s.live[i+1:]...)
			break
		}
	}
	pos := e.pos
	next := e.Proto.Next
	event.Emit(s.bus, event.EffectExpired{EntityID: e.ID, Kind: e.Proto.Kind})
	if p, ok := s.pools.Lookup(e.Proto); ok {
		p.Release(e)
	}
	if next != nil {
		s.SpawnProto(next, pos)
	}
}

// Shutdown retires live effects and destroys every pooled one.
func (s *Spawner) Shutdown() {
	for len(s.live) > 0 {
		e := s.live[0]
		s.live = s.live[1:]
		if p, ok := s.pools.Lookup(e.Proto); ok {
			p.Release(e)
		}
	}
	s.pools.DisposeAll()
}
