package spawn

import (
	"math/rand"
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/core/pool"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/squad"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	world *world.World
	bus   *event.Bus
	coord *Coordinator
}

func newFixture(t *testing.T, defaults pool.Capacity) *fixture {
	log := zaptest.NewLogger(t)
	bus := event.NewBus()
	g := squad.NewGraph(time.Second, rand.New(rand.NewSource(7)), bus, log)
	w := world.NewWorld(ecs.NewWorld(), g, log)
	return &fixture{world: w, bus: bus, coord: NewCoordinator(w, defaults, bus, log)}
}

func skeleton() *data.Prototype {
	return &data.Prototype{
		Name:         "skeleton",
		HP:           10,
		Damage:       2,
		Capabilities: []string{data.CapFollow, data.CapGroup, data.CapDeath},
	}
}

func TestPrewarmSpawnReturn(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 4, Max: 8})
	proto := skeleton()

	f.coord.PrewarmAll([]*data.Prototype{nil, proto}, 4)
	p, ok := f.coord.Pools().Lookup(proto)
	if !ok {
		t.Fatalf("prewarm did not create a pool")
	}
	if s := p.Stats(); s.Free != 4 || s.Active != 0 || s.Created != 4 {
		t.Fatalf("after prewarm %+v", s)
	}
	if f.world.Inactive.Len() != 4 {
		t.Fatalf("prewarmed actors not parked, inactive=%d", f.world.Inactive.Len())
	}

	pos := world.Vec3{X: 3, Y: 4}
	a, ok := f.coord.Spawn(proto, pos, world.QuatFromAngle(1))
	if !ok {
		t.Fatalf("spawn failed")
	}
	if s := p.Stats(); s.Free != 3 || s.Active != 1 {
		t.Fatalf("after spawn %+v", s)
	}
	if !a.Active() || a.Position() != pos || a.Parent() != f.world.Active {
		t.Fatalf("spawned actor not placed")
	}

	f.coord.Return(a)
	if s := p.Stats(); s.Free != 4 || s.Active != 0 || s.Created != 4 {
		t.Fatalf("after return %+v", s)
	}
	if a.Active() || a.Parent() != f.world.Inactive || a.Destroyed() {
		t.Fatalf("returned actor not parked")
	}
}

func TestSpawnNilPrototype(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 2, Max: 4})
	if a, ok := f.coord.Spawn(nil, world.Vec3{}, world.Identity); ok || a != nil {
		t.Fatalf("nil prototype spawned %v", a)
	}
	if f.coord.Pools().Len() != 0 {
		t.Fatalf("pool created for nil prototype")
	}
}

func TestReturnTwiceIsNoop(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 2, Max: 4})
	proto := skeleton()
	a, _ := f.coord.Spawn(proto, world.Vec3{}, world.Identity)
	f.coord.Return(a)
	f.coord.Return(a)
	f.coord.Return(nil)

	p, _ := f.coord.Pools().Lookup(proto)
	if s := p.Stats(); s.Free != 1 || s.Destroyed != 0 {
		t.Fatalf("double return %+v", s)
	}
	if a.Destroyed() {
		t.Fatalf("free actor destroyed by second return")
	}
}

func TestReturnForeignActorDestroys(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 2, Max: 4})

	loose, err := f.world.NewActor(&data.Prototype{Name: "stray", HP: 1})
	if err != nil {
		t.Fatalf("NewActor: %v", err)
	}
	f.coord.Return(loose)
	if !loose.Destroyed() {
		t.Fatalf("actor with no pool not destroyed")
	}

	proto := skeleton()
	f.coord.Spawn(proto, world.Vec3{}, world.Identity)
	outsider, _ := f.world.NewActor(proto)
	f.coord.Return(outsider)
	if !outsider.Destroyed() {
		t.Fatalf("actor not acquired from the pool kept")
	}
	p, _ := f.coord.Pools().Lookup(proto)
	if s := p.Stats(); s.Active != 1 || s.Free != 0 {
		t.Fatalf("foreign return touched pool %+v", s)
	}
}

func TestReturnAboveMaxDestroys(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 1, Max: 2})
	proto := skeleton()

	var actors []*world.Actor
	for i := 0; i < 3; i++ {
		a, ok := f.coord.Spawn(proto, world.Vec3{}, world.Identity)
		if !ok {
			t.Fatalf("spawn %d failed", i)
		}
		actors = append(actors, a)
	}
	for _, a := range actors {
		f.coord.Return(a)
	}
	p, _ := f.coord.Pools().Lookup(proto)
	if s := p.Stats(); s.Free != 2 || s.Destroyed != 1 || s.Created != 3 {
		t.Fatalf("soft cap %+v", s)
	}
	if !actors[2].Destroyed() {
		t.Fatalf("excess actor kept")
	}
}

func TestPrototypePoolOverride(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 2, Max: 4})
	proto := skeleton()
	proto.Pool = &pool.Capacity{Default: 1, Max: 1}
	f.coord.PrewarmAll([]*data.Prototype{proto}, 3)
	p, _ := f.coord.Pools().Lookup(proto)
	if p.Capacity().Max != 1 || p.FreeCount() != 1 {
		t.Fatalf("override ignored: %+v free=%d", p.Capacity(), p.FreeCount())
	}
}

func TestDeathReturnsActorAndResets(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 2, Max: 4})
	proto := skeleton()
	a, _ := f.coord.Spawn(proto, world.Vec3{}, world.Identity)
	a.Kill()

	p, _ := f.coord.Pools().Lookup(proto)
	if p.FreeCount() != 1 || a.Active() {
		t.Fatalf("dead actor not returned")
	}

	again, _ := f.coord.Spawn(proto, world.Vec3{}, world.Identity)
	if again != a {
		t.Fatalf("free actor not reused")
	}
	if again.Dead() || again.HP() != 10 {
		t.Fatalf("reused actor not reset")
	}
	again.Kill()
	if p.FreeCount() != 1 {
		t.Fatalf("second death not handled, free=%d", p.FreeCount())
	}
}

func groupFixture(t *testing.T) (*fixture, data.SpawnGroup, *data.Prototype) {
	f := newFixture(t, pool.Capacity{Default: 4, Max: 8})
	skel := skeleton()
	captain := &data.Prototype{
		Name:             "skeleton_captain",
		HP:               30,
		Damage:           4,
		Capabilities:     []string{data.CapFollow, data.CapGroup, data.CapDeath, data.CapHolding},
		SuccessorOnDeath: skel,
	}
	g := data.SpawnGroup{
		GroupID:     1,
		X:           10,
		Y:           4,
		LeaderProto: captain,
		Members: []data.SpawnMember{
			{Proto: skel, Offset: [2]float64{-1, 0}},
			{Proto: skel, Offset: [2]float64{1, 0}},
			{Proto: skel, Offset: [2]float64{0, -1}},
		},
	}
	return f, g, captain
}

func TestSpawnGroupWiresMembership(t *testing.T) {
	f, g, _ := groupFixture(t)
	leader, members, ok := f.coord.SpawnGroup(g)
	if !ok || len(members) != 3 {
		t.Fatalf("spawn group ok=%v members=%d", ok, len(members))
	}
	if !leader.Group.IsLeader() || f.world.Groups().Leader(1) != leader.Group {
		t.Fatalf("leader not registered")
	}
	if got := len(leader.Group.Roster()); got != 4 {
		t.Fatalf("roster size %d", got)
	}
	if members[0].Position() != (world.Vec3{X: 9, Y: 4}) {
		t.Fatalf("offset not applied: %v", members[0].Position())
	}

	leader.Group.OnAttacked()
	for i := 0; i < 3; i++ {
		f.world.Groups().Update(time.Second)
	}
	total := 0
	for _, m := range members {
		total += m.Attacks()
	}
	if total != 3 || leader.Attacks() != 0 {
		t.Fatalf("member attacks %d leader attacks %d", total, leader.Attacks())
	}
}

func TestLeaderDeathHandsOverToSuccessor(t *testing.T) {
	f, g, captain := groupFixture(t)
	leader, members, _ := f.coord.SpawnGroup(g)
	leader.SetPosition(world.Vec3{X: 12, Y: 6})

	var died []event.ActorDied
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	event.Subscribe(f.bus, func(ev event.ActorDied) { died = append(died, ev) })

	leader.Kill()

	heir := f.world.Groups().Leader(1)
	if heir == nil || heir == leader.Group {
		t.Fatalf("leadership not transferred")
	}
	successor, ok := heir.Owner().(*world.Actor)
	if !ok || successor.Proto != captain.SuccessorOnDeath {
		t.Fatalf("heir is not the successor")
	}
	if successor.Position() != (world.Vec3{X: 12, Y: 6}) {
		t.Fatalf("successor spawned at %v", successor.Position())
	}
	if len(heir.Roster()) != 4 {
		t.Fatalf("successor roster %d", len(heir.Roster()))
	}
	for _, m := range members {
		if m.Group.GroupID() != 1 {
			t.Fatalf("member dropped from group")
		}
	}

	p, _ := f.coord.Pools().Lookup(captain)
	if p.FreeCount() != 1 || p.ActiveCount() != 0 {
		t.Fatalf("dead captain not pooled")
	}
	if leader.Parent() != f.world.Inactive {
		t.Fatalf("dead captain parked under %v", leader.Parent())
	}

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(died) != 1 || died[0].Successor != successor.ID || died[0].GroupID != 1 {
		t.Fatalf("death events %+v", died)
	}
}

func TestMemberDeathShrinksRoster(t *testing.T) {
	f, g, _ := groupFixture(t)
	g.Members[0].Proto = &data.Prototype{
		Name:         "brittle",
		HP:           1,
		Capabilities: []string{data.CapGroup, data.CapDeath},
	}
	leader, members, _ := f.coord.SpawnGroup(g)

	members[0].Kill()
	roster := leader.Group.Roster()
	if len(roster) != 3 {
		t.Fatalf("roster after member death %d", len(roster))
	}
	for _, r := range roster {
		if r == members[0].Group {
			t.Fatalf("dead member still in roster")
		}
	}
	if members[0].Group.GroupID() != 0 {
		t.Fatalf("dead member kept group id")
	}
}

func TestShutdownDisposesIdleActors(t *testing.T) {
	f := newFixture(t, pool.Capacity{Default: 2, Max: 4})
	proto := skeleton()
	f.coord.PrewarmAll([]*data.Prototype{proto}, 2)
	live, _ := f.coord.Spawn(proto, world.Vec3{}, world.Identity)

	f.coord.Shutdown()
	p, _ := f.coord.Pools().Lookup(proto)
	if p.FreeCount() != 0 || p.DestroyedCount() != 1 {
		t.Fatalf("shutdown %+v", p.Stats())
	}
	f.coord.Return(live)
	if !live.Destroyed() {
		t.Fatalf("actor returned after shutdown kept")
	}
}
