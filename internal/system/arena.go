package system

import (
	"time"

	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/effect"
	"github.com/l1jgo/horde/internal/spawn"
	"github.com/l1jgo/horde/internal/status"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
)

// ArenaSystem plays the hero's side of the fight. Every aggro interval it
// points each group at the hero, strikes the group's leader (which starts an
// attack chain) and respawns groups that have been wiped out. Phase 1 (Update).
type ArenaSystem struct {
	world    *world.World
	spawner  *spawn.Coordinator
	effects  *effect.Spawner // optional
	statuses *status.System  // optional
	groups   []data.SpawnGroup
	hero     *world.Actor
	interval time.Duration
	acc      time.Duration
	waves    int
	log      *zap.Logger
}

func NewArenaSystem(w *world.World, sp *spawn.Coordinator, fx *effect.Spawner, st *status.System,
	groups []data.SpawnGroup, hero *world.Actor, interval time.Duration, log *zap.Logger) *ArenaSystem {
	return &ArenaSystem{
		world:    w,
		spawner:  sp,
		effects:  fx,
		statuses: st,
		groups:   groups,
		hero:     hero,
		interval: interval,
		log:      log,
	}
}

func (s *ArenaSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Waves returns how many groups have been (re)spawned.
func (s *ArenaSystem) Waves() int { return s.waves }

// Start spawns every configured group.
func (s *ArenaSystem) Start() {
	for _, g := range s.groups {
		s.spawnGroup(g)
	}
}

func (s *ArenaSystem) Update(dt time.Duration) {
	if s.hero.Dead() {
		s.hero.Reset()
		s.log.Info("hero revived")
	}
	s.acc += dt
	if s.acc < s.interval {
		return
	}
	s.acc = 0

	graph := s.world.Groups()
	for _, g := range s.groups {
		if len(graph.Members(g.GroupID)) == 0 {
			s.spawnGroup(g)
			continue
		}
		leader := graph.Leader(g.GroupID)
		if leader == nil {
			continue
		}
		for _, m := range graph.Members(g.GroupID) {
			if a, ok := m.Owner().(*world.Actor); ok && a.Follow != nil {
				a.Follow.SetTarget(s.hero)
			}
		}

		target, ok := leader.Owner().(*world.Actor)
		if !ok {
			continue
		}
		s.strike(target)

		// the strike may have killed the leader and handed over leadership
		if l := graph.Leader(g.GroupID); l != nil {
			l.OnAttacked()
		}
	}
}

func (s *ArenaSystem) strike(target *world.Actor) {
	at := target.Position()
	if s.statuses != nil {
		s.statuses.ApplyPoison(target, 3, 1)
	}
	target.ApplyDamage(s.hero.Proto.Damage, s.hero.Proto.DamageType, at.Sub(s.hero.Position()), 0)
	if s.effects != nil {
		s.effects.Spawn("telegraph", at)
	}
}

func (s *ArenaSystem) spawnGroup(g data.SpawnGroup) {
	if _, _, ok := s.spawner.SpawnGroup(g); !ok {
		s.log.Warn("group spawn failed", zap.Int("group", g.GroupID))
		return
	}
	s.waves++
}
