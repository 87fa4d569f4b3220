package status

import (
	"math"
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap/zaptest"
)

type doubleDose struct{ calls int }

func (d *doubleDose) PoisonDamage(ctx scripting.PoisonContext) int {
	d.calls++
	return ctx.Base * 2
}

func newSystem(t *testing.T, script PoisonScript) (*System, *world.World) {
	log := zaptest.NewLogger(t)
	w := world.NewWorld(ecs.NewWorld(), nil, log)
	return NewSystem(w, time.Second, 200*time.Millisecond, script, log), w
}

func actor(t *testing.T, w *world.World, hp int) *world.Actor {
	t.Helper()
	a, err := w.NewActor(&data.Prototype{Name: "skeleton", HP: hp, Capabilities: []string{data.CapDeath}})
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	a.SetParent(w.Active)
	a.SetActive(true)
	return a
}

func TestPoisonTicks(t *testing.T) {
	s, w := newSystem(t, nil)
	a := actor(t, w, 20)
	s.ApplyPoison(a, 3, 2)

	s.Update(500 * time.Millisecond)
	if a.HP() != 20 {
		t.Fatalf("poison ticked early")
	}
	s.Update(500 * time.Millisecond)
	if a.HP() != 18 || a.LastHit().Type != "poison" {
		t.Fatalf("hp %d last hit %+v", a.HP(), a.LastHit())
	}
	s.Update(2 * time.Second)
	if a.HP() != 14 {
		t.Fatalf("hp %d after three ticks", a.HP())
	}
	if s.Poisoned(a) {
		t.Fatalf("poison outlived its ticks")
	}
}

func TestPoisonScriptOverride(t *testing.T) {
	script := &doubleDose{}
	s, w := newSystem(t, script)
	a := actor(t, w, 20)
	s.ApplyPoison(a, 1, 3)
	s.Update(time.Second)
	if a.HP() != 14 || script.calls != 1 {
		t.Fatalf("hp %d calls %d", a.HP(), script.calls)
	}
}

func TestPoisonRefreshAndCure(t *testing.T) {
	s, w := newSystem(t, nil)
	a := actor(t, w, 50)
	s.ApplyPoison(a, 2, 1)
	s.ApplyPoison(a, 5, 4)
	s.ApplyPoison(a, 1, 2)
	s.Update(time.Second)
	if a.HP() != 46 {
		t.Fatalf("refresh kept weaker poison, hp %d", a.HP())
	}
	s.Cure(a)
	s.Update(time.Second)
	if a.HP() != 46 || s.Poisoned(a) {
		t.Fatalf("cured poison still ticking")
	}
}

func TestLethalPoison(t *testing.T) {
	s, w := newSystem(t, nil)
	a := actor(t, w, 3)
	deaths := 0
	a.Death.Subscribe(func(*world.Actor) { deaths++ })
	s.ApplyPoison(a, 10, 2)
	s.Update(5 * time.Second)
	if !a.Dead() || deaths != 1 || s.Poisoned(a) {
		t.Fatalf("dead=%v deaths=%d poisoned=%v", a.Dead(), deaths, s.Poisoned(a))
	}
}

func TestPoisonIgnoresInactive(t *testing.T) {
	s, w := newSystem(t, nil)
	a, _ := w.NewActor(&data.Prototype{Name: "idle", HP: 5})
	s.ApplyPoison(a, 3, 1)
	if s.Poisoned(a) {
		t.Fatalf("inactive actor poisoned")
	}
}

func TestKnockbackBlocksAttacksUntilSettled(t *testing.T) {
	s, w := newSystem(t, nil)
	a := actor(t, w, 30)

	a.ApplyDamage(1, "physical", world.Vec3{X: 1}, 4)
	if !s.KnockedBack(a) || a.CanAttack() {
		t.Fatalf("knocked back actor can attack")
	}

	s.Update(100 * time.Millisecond)
	if a.CanAttack() {
		t.Fatalf("settled too early")
	}
	s.Update(150 * time.Millisecond)
	if !a.CanAttack() || s.KnockedBack(a) {
		t.Fatalf("actor never settled")
	}
	if math.Abs(a.Position().X-4) > 1e-9 {
		t.Fatalf("pushed to %v, want x=4", a.Position())
	}
}

func TestResetClearsStatuses(t *testing.T) {
	s, w := newSystem(t, nil)
	a := actor(t, w, 30)
	s.ApplyPoison(a, 3, 1)
	a.ApplyDamage(1, "physical", world.Vec3{Y: 1}, 1)
	a.Reset()
	if s.Poisoned(a) || s.KnockedBack(a) {
		t.Fatalf("statuses survived reset")
	}
}
