package world

import (
	"fmt"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/squad"
	"go.uber.org/zap"
)

// Hit records the last damage an actor took, after clamping.
type Hit struct {
	Amount    int
	Type      string
	Direction Vec3
	Force     float64
}

// Actor is one enemy (or the hero) living in the world. Capabilities are
// resolved from the prototype once, at construction; a nil field means the
// actor does not have it.
// Accessed only from the game loop goroutine.
type Actor struct {
	ID    ecs.EntityID
	Proto *data.Prototype

	Follow  *Follower
	Death   *DeathSource
	Group   *squad.Member
	Holding *Container

	world       *World
	position    Vec3
	orientation Quat
	parent      *Container
	active      bool
	hp          int
	maxHP       int
	dead        bool
	destroyed   bool
	attacks     int
	lastHit     Hit
}

func (a *Actor) Position() Vec3        { return a.position }
func (a *Actor) Orientation() Quat     { return a.orientation }
func (a *Actor) Parent() *Container    { return a.parent }
func (a *Actor) Active() bool          { return a != nil && a.active }
func (a *Actor) Dead() bool            { return a.dead }
func (a *Actor) Destroyed() bool       { return a.destroyed }
func (a *Actor) HP() int               { return a.hp }
func (a *Actor) MaxHP() int            { return a.maxHP }
func (a *Actor) Attacks() int          { return a.attacks }
func (a *Actor) LastHit() Hit          { return a.lastHit }
func (a *Actor) World() *World         { return a.world }
func (a *Actor) SetOrientation(q Quat) { a.orientation = q }

// SetPosition moves the actor and keeps the world's spatial index current.
func (a *Actor) SetPosition(p Vec3) {
	if !a.destroyed {
		a.world.grid.Move(a, a.position, p)
	}
	a.position = p
}

func (a *Actor) String() string {
	if a == nil {
		return "<nil actor>"
	}
	return fmt.Sprintf("%s#%d", a.Proto.String(), a.ID.Index())
}

// SetParent moves the actor under c. nil detaches it.
func (a *Actor) SetParent(c *Container) {
	if a.parent == c {
		return
	}
	if a.parent != nil {
		a.parent.remove(a)
	}
	a.parent = c
	if c != nil {
		c.add(a)
	}
}

// SetActive toggles whether the actor takes part in ticks and queries.
func (a *Actor) SetActive(active bool) { a.active = active }

// Reset restores a reused actor to a fresh state: full HP, alive, death
// source re-armed, no target, no lingering status components.
func (a *Actor) Reset() {
	a.hp = a.maxHP
	a.dead = false
	a.attacks = 0
	a.lastHit = Hit{}
	if a.Death != nil {
		a.Death.rearm()
	}
	if a.Follow != nil {
		a.Follow.Target = nil
	}
	a.world.ecs.RemoveComponents(a.ID)
}

// ApplyDamage is the damage contract. amount and force are clamped to ≥ 0
// and dir is normalized. Returns the damage actually applied. Inactive or
// dead actors take nothing.
func (a *Actor) ApplyDamage(amount int, damageType string, dir Vec3, force float64) int {
	if a == nil || !a.active || a.dead || a.destroyed {
		return 0
	}
	if amount < 0 {
		amount = 0
	}
	if force < 0 {
		force = 0
	}
	dir = dir.Normalized()

	a.hp -= amount
	a.lastHit = Hit{Amount: amount, Type: damageType, Direction: dir, Force: force}
	if force > 0 && a.world.OnKnockback != nil {
		a.world.OnKnockback(a, dir, force)
	}

	if a.hp <= 0 {
		a.hp = 0
		a.dead = true
		a.world.log.Debug("actor died",
			zap.Stringer("actor", a),
			zap.String("damage_type", damageType),
		)
		if a.Death != nil {
			a.Death.fire(a)
		}
	}
	return amount
}

// Kill applies lethal damage.
func (a *Actor) Kill() {
	a.ApplyDamage(a.hp, "true", Vec3{}, 0)
}

// CanAttack is the eligibility check used by attack chains.
func (a *Actor) CanAttack() bool {
	if a == nil || !a.active || a.dead || a.destroyed {
		return false
	}
	return a.world.canAct(a)
}

// PerformAttack strikes the follow target if there is one in reach.
func (a *Actor) PerformAttack() {
	a.attacks++
	if a.Follow == nil || !a.Follow.HasTarget() || a.Proto.Damage <= 0 {
		return
	}
	target := a.Follow.Target
	dir := target.position.Sub(a.position)
	dealt := target.ApplyDamage(a.Proto.Damage, a.Proto.DamageType, dir, 1)
	a.world.log.Debug("actor attacked",
		zap.Stringer("attacker", a),
		zap.Stringer("target", target),
		zap.Int("damage", dealt),
	)
}
