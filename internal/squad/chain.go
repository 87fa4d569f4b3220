package squad

import (
	"math/rand"
	"time"

	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"go.uber.org/zap"
)

// Attacker is anything a chain can hand a turn to.
type Attacker interface {
	// CanAttack is checked when the attacker reaches the head of the queue.
	CanAttack() bool
	PerformAttack()
}

// ChainState tracks where a chain is in its turn cycle.
type ChainState int

const (
	ChainActive  ChainState = iota // ready to run its next turn
	ChainWaiting                   // sleeping out the turn delay
	ChainEnded                     // drained or cancelled; removed from the scheduler
)

func (s ChainState) String() string {
	switch s {
	case ChainActive:
		return "active"
	case ChainWaiting:
		return "waiting"
	case ChainEnded:
		return "ended"
	}
	return "unknown"
}

// Chain is one shuffled pass over a group's members.
type Chain struct {
	ID        int
	queue     []Attacker
	state     ChainState
	resumeAt  time.Duration
	attacks   int
	cancelled bool
}

func (c *Chain) State() ChainState { return c.state }
func (c *Chain) Remaining() int    { return len(c.queue) }
func (c *Chain) Attacks() int      { return c.attacks }
func (c *Chain) Cancelled() bool   { return c.cancelled }

// IsActive reports whether the chain still holds a slot in its scheduler.
func (c *Chain) IsActive() bool { return c.state != ChainEnded }

// Queue returns a copy of the pending turns, head first.
func (c *Chain) Queue() []Attacker {
	out := make([]Attacker, len(c.queue))
	copy(out, c.queue)
	return out
}

// ChainScheduler runs any number of concurrent chains for one group. Waits are
// plain state: a waiting chain resumes on the first Update at or past resumeAt.
// Accessed only from the game loop goroutine.
type ChainScheduler struct {
	GroupID int // stamped on chain events

	delay  time.Duration
	rng    *rand.Rand
	bus    *event.Bus
	log    *zap.Logger
	now    time.Duration
	nextID int
	chains []*Chain
}

func NewChainScheduler(delay time.Duration, rng *rand.Rand, bus *event.Bus, log *zap.Logger) *ChainScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChainScheduler{
		delay:  delay,
		rng:    rng,
		bus:    bus,
		log:    log,
		nextID: 1,
		chains: make([]*Chain, 0, 2),
	}
}

func (s *ChainScheduler) Phase() coresys.Phase      { return coresys.PhaseUpdate }
func (s *ChainScheduler) TurnDelay() time.Duration { return s.delay }
func (s *ChainScheduler) Now() time.Duration       { return s.now }
func (s *ChainScheduler) NextChainID() int         { return s.nextID }
func (s *ChainScheduler) ActiveCount() int         { return len(s.chains) }

// Chains returns a copy of the active chain set in start order.
func (s *ChainScheduler) Chains() []*Chain {
	out := make([]*Chain, len(s.chains))
	copy(out, s.chains)
	return out
}

// CreateRandomAttackQueue returns members without the leader, shuffled with
// Fisher–Yates so every ordering is equally likely.
func (s *ChainScheduler) CreateRandomAttackQueue(members []Attacker, leader Attacker) []Attacker {
	queue := make([]Attacker, 0, len(members))
	for _, m := range members {
		if leader != nil && m == leader {
			continue
		}
		queue = append(queue, m)
	}
	for i := len(queue) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		queue[i], queue[j] = queue[j], queue[i]
	}
	return queue
}

// Enqueue builds a new chain and adds it to the active set without running a
// turn. In-flight chains are left alone.
func (s *ChainScheduler) Enqueue(members []Attacker, leader Attacker) *Chain {
	c := &Chain{
		ID:    s.nextID,
		queue: s.CreateRandomAttackQueue(members, leader),
		state: ChainActive,
	}
	s.nextID++
	s.chains = append(s.chains, c)

	event.Emit(s.bus, event.ChainStarted{GroupID: s.GroupID, ChainID: c.ID, Turns: len(c.queue)})
	s.log.Debug("attack chain started",
		zap.Int("group", s.GroupID),
		zap.Int("chain", c.ID),
		zap.Int("turns", len(c.queue)),
	)
	return c
}

// Start enqueues a chain and runs its first turn immediately.
func (s *ChainScheduler) Start(members []Attacker, leader Attacker) *Chain {
	c := s.Enqueue(members, leader)
	s.ExecuteNextAttack(c)
	return c
}

// ExecuteNextAttack pops turns until one attacker is able to act. Nil and
// ineligible heads are dropped without consuming a wait. Returns whether an
// attack was performed. A chain whose queue runs dry ends here.
func (s *ChainScheduler) ExecuteNextAttack(c *Chain) bool {
	if c == nil || c.state == ChainEnded {
		return false
	}
	for len(c.queue) > 0 {
		head := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]

		if head == nil || !head.CanAttack() {
			continue
		}

		head.PerformAttack()
		c.attacks++
		if len(c.queue) == 0 {
			s.end(c, false)
			return true
		}
		c.state = ChainWaiting
		c.resumeAt = s.now + s.delay
		return true
	}
	s.end(c, false)
	return false
}

// Update advances the scheduler clock and gives each due chain one turn.
func (s *ChainScheduler) Update(dt time.Duration) {
	s.now += dt
	if len(s.chains) == 0 {
		return
	}
	due := make([]*Chain, 0, len(s.chains))
	for _, c := range s.chains {
		if c.state == ChainWaiting && s.now < c.resumeAt {
			continue
		}
		due = append(due, c)
	}
	for _, c := range due {
		if c.state == ChainEnded {
			continue
		}
		c.state = ChainActive
		s.ExecuteNextAttack(c)
	}
}

// Cancel stops a chain immediately, whatever turns remain.
func (s *ChainScheduler) Cancel(c *Chain) {
	if c == nil || c.state == ChainEnded {
		return
	}
	s.end(c, true)
}

// CancelAll stops every chain.
func (s *ChainScheduler) CancelAll() {
	for len(s.chains) > 0 {
		s.end(s.chains[0], true)
	}
}

// Reset cancels everything and restarts chain ids at 1.
func (s *ChainScheduler) Reset() {
	s.CancelAll()
	s.nextID = 1
}

func (s *ChainScheduler) end(c *Chain, cancelled bool) {
	c.state = ChainEnded
	c.cancelled = cancelled
	clear(c.queue)
	c.queue = nil
	for i, other := range s.chains {
		if other == c {
			s.chains = append(s.chains[:i], s.chains[i+1:]...)
			break
		}
	}

	event.Emit(s.bus, event.ChainEnded{GroupID: s.GroupID, ChainID: c.ID, Cancelled: cancelled})
	s.log.Debug("attack chain ended",
		zap.Int("group", s.GroupID),
		zap.Int("chain", c.ID),
		zap.Int("attacks", c.attacks),
		zap.Bool("cancelled", cancelled),
	)
}
