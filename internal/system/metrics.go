package system

import (
	"time"

	"github.com/l1jgo/horde/internal/core/pool"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/effect"
	"github.com/l1jgo/horde/internal/metrics"
	"github.com/l1jgo/horde/internal/spawn"
	"github.com/l1jgo/horde/internal/squad"
	"github.com/l1jgo/horde/internal/world"
)

// MetricsSystem publishes pool and chain counters to the Prometheus
// collector once per tick. Phase 3 (Persist).
type MetricsSystem struct {
	collector *metrics.Collector
	spawner   *spawn.Coordinator
	effects   *effect.Spawner // optional
	graph     *squad.Graph
	ticks     func() uint64
}

func NewMetricsSystem(c *metrics.Collector, sp *spawn.Coordinator, fx *effect.Spawner, g *squad.Graph, ticks func() uint64) *MetricsSystem {
	return &MetricsSystem{collector: c, spawner: sp, effects: fx, graph: g, ticks: ticks}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *MetricsSystem) Update(_ time.Duration) {
	var snap metrics.Snapshot
	s.spawner.Pools().Each(func(_ *data.Prototype, p *pool.Pool[*world.Actor]) {
		snap.Pools = append(snap.Pools, metrics.PoolSample{Name: p.Name(), Stats: p.Stats()})
	})
	if s.effects != nil {
		s.effects.Pools().Each(func(_ *data.EffectProto, p *pool.Pool[*effect.Effect]) {
			snap.Pools = append(snap.Pools, metrics.PoolSample{Name: p.Name(), Stats: p.Stats()})
		})
	}
	snap.Chains = s.graph.ActiveChains()
	if s.ticks != nil {
		snap.Ticks = s.ticks()
	}
	s.collector.Publish(snap)
}
