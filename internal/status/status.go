// Package status ticks timed conditions on actors: poison damage over time
// and the knockback stagger that keeps an actor from acting.
package status

import (
	"sort"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
)

// Poison deals Amount every poison interval until TicksLeft runs out.
type Poison struct {
	TicksLeft int
	Amount    int
	acc       time.Duration
}

// Knockback pushes the actor along Dir for Remaining; the actor cannot
// attack until it settles.
type Knockback struct {
	Remaining time.Duration
	Dir       world.Vec3
	Force     float64
}

// PoisonScript lets Lua override per-tick poison damage.
type PoisonScript interface {
	PoisonDamage(ctx scripting.PoisonContext) int
}

// System owns the status component stores. Phase 1 (Update).
type System struct {
	world    *world.World
	poison   *ecs.Store[Poison]
	knock    *ecs.Store[Knockback]
	interval time.Duration
	settle   time.Duration
	script   PoisonScript
	log      *zap.Logger
}

// NewSystem registers the stores with the world's ECS, hooks knockback into
// the damage path and gates attacks while an actor is staggered. script may
// be nil.
func NewSystem(w *world.World, poisonInterval, knockbackSettle time.Duration, script PoisonScript, log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	s := &System{
		world:    w,
		poison:   ecs.NewStore[Poison](),
		knock:    ecs.NewStore[Knockback](),
		interval: poisonInterval,
		settle:   knockbackSettle,
		script:   script,
		log:      log,
	}
	w.ECS().Register(s.poison)
	w.ECS().Register(s.knock)
	w.OnKnockback = s.Knock
	w.AddActGate(s.canAct)
	return s
}

func (s *System) Phase() coresys.Phase { return coresys.PhaseUpdate }

// ApplyPoison poisons a for ticks intervals of amount damage. Re-poisoning
// refreshes the duration and keeps the stronger amount.
func (s *System) ApplyPoison(a *world.Actor, ticks, amount int) {
	if a == nil || !a.Active() || a.Dead() || ticks <= 0 {
		return
	}
	if p, ok := s.poison.Get(a.ID); ok {
		p.TicksLeft = max(p.TicksLeft, ticks)
		p.Amount = max(p.Amount, amount)
		return
	}
	s.poison.Set(a.ID, &Poison{TicksLeft: ticks, Amount: amount})
}

// Cure removes poison from a.
func (s *System) Cure(a *world.Actor) {
	if a != nil {
		s.poison.Remove(a.ID)
	}
}

// Knock staggers a for the settle time. Installed as the world's knockback hook.
func (s *System) Knock(a *world.Actor, dir world.Vec3, force float64) {
	if s.settle <= 0 {
		return
	}
	s.knock.Set(a.ID, &Knockback{Remaining: s.settle, Dir: dir, Force: force})
}

func (s *System) Poisoned(a *world.Actor) bool    { return s.poison.Has(a.ID) }
func (s *System) KnockedBack(a *world.Actor) bool { return s.knock.Has(a.ID) }

func (s *System) canAct(a *world.Actor) bool {
	return !s.knock.Has(a.ID)
}

func (s *System) Update(dt time.Duration) {
	s.tickKnockback(dt)
	s.tickPoison(dt)
}

func (s *System) tickKnockback(dt time.Duration) {
	for _, id := range sortedIDs(s.knock) {
		k, _ := s.knock.Get(id)
		a, ok := s.world.Actor(id)
		if !ok || !a.Active() {
			s.knock.Remove(id)
			continue
		}
		step := min(dt, k.Remaining)
		// the full force is spread evenly over the settle time
		a.SetPosition(a.Position().Add(k.Dir.Scale(k.Force * float64(step) / float64(s.settle))))
		k.Remaining -= step
		if k.Remaining <= 0 {
			s.knock.Remove(id)
		}
	}
}

func (s *System) tickPoison(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	for _, id := range sortedIDs(s.poison) {
		p, ok := s.poison.Get(id)
		if !ok {
			continue // removed by an earlier death this tick
		}
		a, ok := s.world.Actor(id)
		if !ok || !a.Active() || a.Dead() {
			s.poison.Remove(id)
			continue
		}
		p.acc += dt
		for p.acc >= s.interval && p.TicksLeft > 0 {
			p.acc -= s.interval
			p.TicksLeft--
			dmg := p.Amount
			if s.script != nil {
				dmg = s.script.PoisonDamage(scripting.PoisonContext{
					Prototype: a.Proto.Name,
					HP:        a.HP(),
					MaxHP:     a.MaxHP(),
					Base:      p.Amount,
					TicksLeft: p.TicksLeft,
				})
			}
			a.ApplyDamage(dmg, "poison", world.Vec3{}, 0)
			if a.Dead() {
				s.log.Debug("poison killed actor", zap.Stringer("actor", a))
				break
			}
		}
		if p.TicksLeft <= 0 || a.Dead() {
			s.poison.Remove(id)
		}
	}
}

func sortedIDs[T any](store *ecs.Store[T]) []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, store.Len())
	store.Each(func(id ecs.EntityID, _ *T) {
		ids = append(ids, id)
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
