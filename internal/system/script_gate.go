package system

import (
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/world"
)

// ScriptGate adapts the Lua can_attack hook to a world act gate.
func ScriptGate(eng *scripting.Engine) func(*world.Actor) bool {
	return func(a *world.Actor) bool {
		ctx := scripting.AttackContext{
			Prototype: a.Proto.Name,
			HP:        a.HP(),
			MaxHP:     a.MaxHP(),
			Attacks:   a.Attacks(),
		}
		if a.Group != nil {
			ctx.GroupID = a.Group.GroupID()
			ctx.Leader = a.Group.IsLeader()
		}
		return eng.CanAttack(ctx)
	}
}
