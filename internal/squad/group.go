package squad

import (
	"math/rand"
	"sort"
	"time"

	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"go.uber.org/zap"
)

// Graph tracks group membership for every actor with the group capability.
// Group 0 means "no group". At most one leader per group is kept at any time.
type Graph struct {
	delay time.Duration
	rng   *rand.Rand
	bus   *event.Bus
	log   *zap.Logger

	members map[*Member]struct{}
	byGroup map[int][]*Member // join order
	leaders map[int]*Member
}

func NewGraph(turnDelay time.Duration, rng *rand.Rand, bus *event.Bus, log *zap.Logger) *Graph {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{
		delay:   turnDelay,
		rng:     rng,
		bus:     bus,
		log:     log,
		members: make(map[*Member]struct{}, 64),
		byGroup: make(map[int][]*Member, 8),
		leaders: make(map[int]*Member, 8),
	}
}

// NewMember registers owner with the graph, outside any group.
func (g *Graph) NewMember(owner Attacker) *Member {
	m := &Member{
		graph:  g,
		owner:  owner,
		chains: NewChainScheduler(g.delay, g.rng, g.bus, g.log),
	}
	g.members[m] = struct{}{}
	return m
}

// Leader returns the current leader of groupID, or nil.
func (g *Graph) Leader(groupID int) *Member {
	return g.leaders[groupID]
}

// Members returns the members of groupID in join order.
func (g *Graph) Members(groupID int) []*Member {
	src := g.byGroup[groupID]
	out := make([]*Member, len(src))
	copy(out, src)
	return out
}

// Groups returns the ids of all non-empty groups, ascending.
func (g *Graph) Groups() []int {
	ids := make([]int, 0, len(g.byGroup))
	for id := range g.byGroup {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Registered returns the number of members known to the graph.
func (g *Graph) Registered() int { return len(g.members) }

// ActiveChains sums in-flight chains across all leaders.
func (g *Graph) ActiveChains() int {
	n := 0
	for _, l := range g.leaders {
		n += l.chains.ActiveCount()
	}
	return n
}

func (g *Graph) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Update drives every leader's chains, in group id order.
func (g *Graph) Update(dt time.Duration) {
	for _, id := range g.Groups() {
		if l := g.leaders[id]; l != nil {
			l.chains.Update(dt)
		}
	}
}

func (g *Graph) join(m *Member, groupID int) {
	for _, other := range g.byGroup[groupID] {
		if other == m {
			return
		}
	}
	g.byGroup[groupID] = append(g.byGroup[groupID], m)
}

func (g *Graph) leave(m *Member, groupID int) {
	list := g.byGroup[groupID]
	for i, other := range list {
		if other == m {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(g.byGroup, groupID)
	} else {
		g.byGroup[groupID] = list
	}
	if g.leaders[groupID] == m {
		delete(g.leaders, groupID)
	}
}

// Member is the group-membership capability of one actor.
type Member struct {
	graph   *Graph
	owner   Attacker
	groupID int
	leader  bool
	roster  []*Member // leader only: self first, then members
	chains  *ChainScheduler
}

func (m *Member) GroupID() int               { return m.groupID }
func (m *Member) IsLeader() bool             { return m.leader }
func (m *Member) Owner() Attacker            { return m.owner }
func (m *Member) Scheduler() *ChainScheduler { return m.chains }

// Roster returns a copy of the leader's working set.
func (m *Member) Roster() []*Member {
	out := make([]*Member, len(m.roster))
	copy(out, m.roster)
	return out
}

// CanAttack is false once the member has left its group or lost its owner,
// so stale queue entries are skipped.
func (m *Member) CanAttack() bool {
	return m != nil && m.owner != nil && m.groupID != 0 && m.owner.CanAttack()
}

func (m *Member) PerformAttack() {
	if m != nil && m.owner != nil {
		m.owner.PerformAttack()
	}
}

// InitializeGroup places m in groupID. A leader snapshots itself plus every
// member already in the group; a previous leader of that group is demoted.
// A non-leader joining a led group is appended to the leader's roster.
func (m *Member) InitializeGroup(groupID int, isLeader bool) {
	g := m.graph
	if groupID == 0 {
		m.ClearGroup()
		return
	}
	if m.groupID != 0 && m.groupID != groupID {
		m.ClearGroup()
	}

	m.groupID = groupID
	m.chains.GroupID = groupID
	g.join(m, groupID)

	if !isLeader {
		if m.leader {
			m.demote()
		}
		if l := g.leaders[groupID]; l != nil && l != m {
			l.addToRoster(m)
		}
		return
	}

	if prev := g.leaders[groupID]; prev != nil && prev != m {
		g.log.Warn("group already led, demoting previous leader", zap.Int("group", groupID))
		prev.demote()
	}
	m.leader = true
	g.leaders[groupID] = m

	m.roster = m.roster[:0]
	m.roster = append(m.roster, m)
	for _, other := range g.byGroup[groupID] {
		if other != m && other.owner != nil {
			m.roster = append(m.roster, other)
		}
	}
}

// OnAttacked is the leader's trigger: start a chain over the roster.
// Returns nil for non-leaders.
func (m *Member) OnAttacked() *Chain {
	if !m.leader || m.groupID == 0 {
		return nil
	}
	members := make([]Attacker, len(m.roster))
	for i, r := range m.roster {
		members[i] = r
	}
	return m.chains.Start(members, m)
}

// OnMemberDied drops dead from the leader's roster.
func (m *Member) OnMemberDied(dead *Member) {
	for i, r := range m.roster {
		if r == dead {
			m.roster = append(m.roster[:i], m.roster[i+1:]...)
			return
		}
	}
}

// OnMemberTerminalEvent runs when m's actor dies or despawns. successor is
// the group capability of the actor spawned in its place, or nil. Leadership
// moves to the successor; without one the oldest remaining member takes over.
func (m *Member) OnMemberTerminalEvent(successor *Member) {
	g := m.graph
	groupID, wasLeader := m.groupID, m.leader

	if !wasLeader && groupID != 0 {
		if l := g.leaders[groupID]; l != nil {
			l.OnMemberDied(m)
		}
	}

	m.ClearGroup()
	if groupID == 0 {
		return
	}

	switch {
	case successor != nil && successor != m:
		successor.InitializeGroup(groupID, wasLeader)
	case wasLeader:
		if heirs := g.byGroup[groupID]; len(heirs) > 0 {
			g.log.Debug("leader lost without successor, promoting member", zap.Int("group", groupID))
			heirs[0].InitializeGroup(groupID, true)
		}
	}
}

// ClearGroup cancels in-flight chains, empties the roster, restarts chain ids
// and leaves the group.
func (m *Member) ClearGroup() {
	m.chains.Reset()
	m.roster = nil
	if m.groupID == 0 {
		m.leader = false
		return
	}
	g := m.graph
	if !m.leader {
		if l := g.leaders[m.groupID]; l != nil {
			l.OnMemberDied(m)
		}
	}
	g.leave(m, m.groupID)
	m.groupID = 0
	m.leader = false
	m.chains.GroupID = 0
}

// Detach removes m from the graph for good. Used when the owning actor is destroyed.
func (m *Member) Detach() {
	m.ClearGroup()
	delete(m.graph.members, m)
	m.owner = nil
}

func (m *Member) demote() {
	m.chains.Reset()
	m.leader = false
	m.roster = nil
	if m.graph.leaders[m.groupID] == m {
		delete(m.graph.leaders, m.groupID)
	}
}

func (m *Member) addToRoster(other *Member) {
	for _, r := range m.roster {
		if r == other {
			return
		}
	}
	m.roster = append(m.roster, other)
}
