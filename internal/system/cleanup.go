package system

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Destroyed actors and effects give their entity slots back here.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	world   *ecs.World
	flushed int
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.flushed += s.world.Pending()
	s.world.FlushDestroyQueue()
}

// Flushed returns how many entities have been destroyed so far.
func (s *CleanupSystem) Flushed() int { return s.flushed }
