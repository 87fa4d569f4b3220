// Package metrics exposes pool and attack-chain state to Prometheus.
package metrics

import (
	"sort"
	"sync"

	"github.com/l1jgo/horde/internal/core/pool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolSample is one pool's counters at snapshot time.
type PoolSample struct {
	Name  string
	Stats pool.Stats
}

// Snapshot is what the game loop publishes once per persist phase.
type Snapshot struct {
	Pools  []PoolSample
	Chains int
	Ticks  uint64
}

// Collector serves the last published snapshot. Publish is called from the
// game loop, Collect from the HTTP handler goroutine.
type Collector struct {
	mu   sync.Mutex
	snap Snapshot

	active    *prometheus.Desc
	free      *prometheus.Desc
	created   *prometheus.Desc
	destroyed *prometheus.Desc
	chains    *prometheus.Desc
	ticks     *prometheus.Desc
}

func NewCollector() *Collector {
	label := []string{"prototype"}
	return &Collector{
		active:    prometheus.NewDesc("horde_pool_active", "Instances currently handed out by the pool.", label, nil),
		free:      prometheus.NewDesc("horde_pool_free", "Idle instances waiting in the pool.", label, nil),
		created:   prometheus.NewDesc("horde_pool_created_total", "Instances created by the pool.", label, nil),
		destroyed: prometheus.NewDesc("horde_pool_destroyed_total", "Instances destroyed by the pool.", label, nil),
		chains:    prometheus.NewDesc("horde_attack_chains_active", "Attack chains in flight across all groups.", nil, nil),
		ticks:     prometheus.NewDesc("horde_ticks_total", "Simulation ticks run.", nil, nil),
	}
}

// Publish replaces the snapshot. Samples are sorted by name so scrapes are stable.
func (c *Collector) Publish(s Snapshot) {
	pools := make([]PoolSample, len(s.Pools))
	copy(pools, s.Pools)
	sort.Slice(pools, func(i, j int) bool { return pools[i].Name < pools[j].Name })
	s.Pools = pools

	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// Last returns the most recently published snapshot.
func (c *Collector) Last() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.free
	ch <- c.created
	ch <- c.destroyed
	ch <- c.chains
	ch <- c.ticks
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Last()
	for _, p := range s.Pools {
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(p.Stats.Active), p.Name)
		ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(p.Stats.Free), p.Name)
		ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(p.Stats.Created), p.Name)
		ch <- prometheus.MustNewConstMetric(c.destroyed, prometheus.CounterValue, float64(p.Stats.Destroyed), p.Name)
	}
	ch <- prometheus.MustNewConstMetric(c.chains, prometheus.GaugeValue, float64(s.Chains))
	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(s.Ticks))
}
