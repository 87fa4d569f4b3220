package squad

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/core/event"
	"go.uber.org/zap/zaptest"
)

type fakeAttacker struct {
	name    string
	blocked bool
	attacks int
	log     *[]string
}

func (f *fakeAttacker) CanAttack() bool { return f != nil && !f.blocked }

func (f *fakeAttacker) PerformAttack() {
	f.attacks++
	if f.log != nil {
		*f.log = append(*f.log, f.name)
	}
}

func newScheduler(t *testing.T, delay time.Duration, seed int64) *ChainScheduler {
	return NewChainScheduler(delay, rand.New(rand.NewSource(seed)), nil, zaptest.NewLogger(t))
}

// adopt installs a chain with a fixed queue order.
func (s *ChainScheduler) adopt(queue ...Attacker) *Chain {
	c := &Chain{ID: s.nextID, queue: queue, state: ChainActive}
	s.nextID++
	s.chains = append(s.chains, c)
	return c
}

func attackers(names ...string) ([]Attacker, []*fakeAttacker) {
	var as []Attacker
	var fs []*fakeAttacker
	for _, n := range names {
		f := &fakeAttacker{name: n}
		as = append(as, f)
		fs = append(fs, f)
	}
	return as, fs
}

func TestQueueExcludesLeader(t *testing.T) {
	s := newScheduler(t, time.Second, 1)
	members, fs := attackers("leader", "a", "b", "c")

	q := s.CreateRandomAttackQueue(members, fs[0])
	if len(q) != 3 {
		t.Fatalf("queue has %d entries, want 3", len(q))
	}
	seen := map[Attacker]bool{}
	for _, a := range q {
		if a == Attacker(fs[0]) {
			t.Fatalf("leader in queue")
		}
		seen[a] = true
	}
	if len(seen) != 3 {
		t.Fatalf("queue has duplicates")
	}
}

func TestShuffleFairness(t *testing.T) {
	s := newScheduler(t, 0, 20240601)
	members, _ := attackers("a", "b", "c")

	const trials = 60000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		q := s.CreateRandomAttackQueue(members, nil)
		var key strings.Builder
		for _, a := range q {
			key.WriteString(a.(*fakeAttacker).name)
		}
		counts[key.String()]++
	}
	if len(counts) != 6 {
		t.Fatalf("saw %d orderings, want 6: %v", len(counts), counts)
	}
	for perm, n := range counts {
		freq := float64(n) / trials
		if freq < 1.0/6-0.01 || freq > 1.0/6+0.01 {
			t.Fatalf("ordering %s frequency %.4f outside tolerance", perm, freq)
		}
	}
}

func TestExecuteNextAttackSkipsWithoutDelay(t *testing.T) {
	s := newScheduler(t, time.Second, 1)
	var order []string
	blocked := &fakeAttacker{name: "stunned", blocked: true, log: &order}
	ready := &fakeAttacker{name: "ready", log: &order}
	last := &fakeAttacker{name: "last", log: &order}

	c := s.adopt(blocked, nil, ready, last)
	if !s.ExecuteNextAttack(c) {
		t.Fatalf("expected an attack")
	}
	if len(order) != 1 || order[0] != "ready" {
		t.Fatalf("attack order %v", order)
	}
	if c.State() != ChainWaiting || c.Remaining() != 1 {
		t.Fatalf("state %s remaining %d", c.State(), c.Remaining())
	}
	if blocked.attacks != 0 {
		t.Fatalf("ineligible member attacked")
	}

	s.Update(999 * time.Millisecond)
	if last.attacks != 0 {
		t.Fatalf("turn ran before delay elapsed")
	}
	s.Update(time.Millisecond)
	if last.attacks != 1 {
		t.Fatalf("turn did not run after delay")
	}
	if c.State() != ChainEnded || s.ActiveCount() != 0 {
		t.Fatalf("chain not ended: %s, active %d", c.State(), s.ActiveCount())
	}
}

func TestChainDrainsWithIneligibleMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 200; trial++ {
		s := NewChainScheduler(250*time.Millisecond, rng, nil, nil)
		n := 1 + rng.Intn(8)
		var members []Attacker
		eligible := 0
		for i := 0; i < n; i++ {
			switch rng.Intn(3) {
			case 0:
				members = append(members, nil)
			case 1:
				members = append(members, &fakeAttacker{blocked: true})
			default:
				members = append(members, &fakeAttacker{})
				eligible++
			}
		}
		c := s.Enqueue(members, nil)

		calls := 0
		for c.IsActive() {
			s.ExecuteNextAttack(c)
			calls++
			if calls > n+1 {
				t.Fatalf("trial %d: chain did not drain after %d calls", trial, calls)
			}
		}
		if c.Attacks() != eligible {
			t.Fatalf("trial %d: %d attacks, want %d", trial, c.Attacks(), eligible)
		}
		if s.ActiveCount() != 0 || c.Remaining() != 0 {
			t.Fatalf("trial %d: chain left behind", trial)
		}
	}
}

func TestStartRunsFirstTurnImmediately(t *testing.T) {
	s := newScheduler(t, time.Second, 1)
	members, fs := attackers("a", "b")

	c := s.Start(members, nil)
	total := fs[0].attacks + fs[1].attacks
	if total != 1 || c.Remaining() != 1 {
		t.Fatalf("attacks %d remaining %d", total, c.Remaining())
	}
}

func TestConcurrentChainsInterleave(t *testing.T) {
	bus := event.NewBus()
	s := NewChainScheduler(time.Second, rand.New(rand.NewSource(5)), bus, nil)
	members, fs := attackers("a", "b", "c")

	first := s.Start(members, nil)
	s.Update(500 * time.Millisecond)
	second := s.Start(members, nil)

	if s.ActiveCount() != 2 {
		t.Fatalf("second trigger cancelled the first chain")
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("chain ids %d, %d", first.ID, second.ID)
	}

	for i := 0; i < 10; i++ {
		s.Update(500 * time.Millisecond)
	}
	total := 0
	for _, f := range fs {
		total += f.attacks
	}
	if total != 6 {
		t.Fatalf("total attacks %d, want 6", total)
	}
	if s.ActiveCount() != 0 {
		t.Fatalf("chains still active")
	}

	bus.SwapBuffers()
	started, ended := 0, 0
	event.Subscribe(bus, func(event.ChainStarted) { started++ })
	event.Subscribe(bus, func(ev event.ChainEnded) {
		if !ev.Cancelled {
			ended++
		}
	})
	bus.DispatchAll()
	if started != 2 || ended != 2 {
		t.Fatalf("events started=%d ended=%d", started, ended)
	}
}

func TestCancelStopsImmediately(t *testing.T) {
	s := newScheduler(t, time.Second, 1)
	members, fs := attackers("a", "b", "c", "d")

	c := s.Start(members, nil)
	s.Cancel(c)
	if c.IsActive() || !c.Cancelled() || c.Remaining() != 0 {
		t.Fatalf("chain not cancelled: %s %d", c.State(), c.Remaining())
	}
	if s.ActiveCount() != 0 {
		t.Fatalf("cancelled chain still in active set")
	}

	s.Update(10 * time.Second)
	total := 0
	for _, f := range fs {
		total += f.attacks
	}
	if total != 1 {
		t.Fatalf("attacks after cancel: %d", total)
	}
	if s.ExecuteNextAttack(c) {
		t.Fatalf("ended chain executed")
	}
	s.Cancel(c)
}

func TestResetRestartsChainIDs(t *testing.T) {
	s := newScheduler(t, time.Second, 1)
	members, _ := attackers("a", "b", "c")
	s.Start(members, nil)
	s.Start(members, nil)
	if s.NextChainID() != 3 {
		t.Fatalf("next id %d", s.NextChainID())
	}

	s.Reset()
	if s.ActiveCount() != 0 || s.NextChainID() != 1 {
		t.Fatalf("reset left active=%d next=%d", s.ActiveCount(), s.NextChainID())
	}
	if c := s.Enqueue(members, nil); c.ID != 1 {
		t.Fatalf("id after reset %d", c.ID)
	}
}

func TestEmptyChainEndsOnFirstTurn(t *testing.T) {
	s := newScheduler(t, time.Second, 1)
	leader := &fakeAttacker{name: "alone"}
	c := s.Start([]Attacker{leader}, leader)
	if c.IsActive() || s.ActiveCount() != 0 {
		t.Fatalf("leader-only chain did not end")
	}
	if leader.attacks != 0 {
		t.Fatalf("leader attacked in its own chain")
	}
}
