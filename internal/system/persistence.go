package system

import (
	"context"
	"time"

	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/persist"
	"go.uber.org/zap"
)

// JournalWriter is the storage side of the actor journal.
type JournalWriter interface {
	WriteBatch(ctx context.Context, entries []persist.JournalEntry) error
}

// maxBuffered bounds the journal buffer while the database is unreachable.
const maxBuffered = 10000

// JournalSystem records actor lifecycle events and writes them out every
// interval ticks. Phase 3 (Persist).
type JournalSystem struct {
	writer    JournalWriter
	ticks     func() uint64
	log       *zap.Logger
	buf       []persist.JournalEntry
	tickCount int
	interval  int
	dropped   int
}

// NewJournalSystem subscribes to the bus. ticks supplies the current tick
// number stamped on each entry.
func NewJournalSystem(bus *event.Bus, writer JournalWriter, ticks func() uint64, log *zap.Logger, intervalTicks int) *JournalSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	s := &JournalSystem{
		writer:   writer,
		ticks:    ticks,
		log:      log,
		buf:      make([]persist.JournalEntry, 0, 256),
		interval: intervalTicks,
	}
	event.Subscribe(bus, func(ev event.ActorSpawned) {
		s.record(persist.JournalEntry{Kind: persist.KindSpawned, EntityID: uint64(ev.EntityID), Prototype: ev.Prototype})
	})
	event.Subscribe(bus, func(ev event.ActorDied) {
		s.record(persist.JournalEntry{
			Kind:      persist.KindDied,
			EntityID:  uint64(ev.EntityID),
			Prototype: ev.Prototype,
			GroupID:   ev.GroupID,
			RelatedID: uint64(ev.Successor),
		})
	})
	event.Subscribe(bus, func(ev event.ActorReturned) {
		kind := persist.KindReturned
		if ev.Destroyed {
			kind = persist.KindDestroyed
		}
		s.record(persist.JournalEntry{Kind: kind, EntityID: uint64(ev.EntityID), Prototype: ev.Prototype})
	})
	event.Subscribe(bus, func(ev event.ChainStarted) {
		s.record(persist.JournalEntry{Kind: persist.KindChain, GroupID: ev.GroupID, RelatedID: uint64(ev.ChainID)})
	})
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Buffered returns the number of entries waiting to be written.
func (s *JournalSystem) Buffered() int { return len(s.buf) }

// Dropped returns how many entries were discarded because the buffer was full.
func (s *JournalSystem) Dropped() int { return s.dropped }

// Flush writes everything buffered. On failure the entries are kept for the
// next attempt. Called for graceful shutdown as well.
func (s *JournalSystem) Flush() {
	if len(s.buf) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.writer.WriteBatch(ctx, s.buf); err != nil {
		s.log.Warn("journal flush failed", zap.Int("entries", len(s.buf)), zap.Error(err))
		return
	}
	s.log.Debug("journal flushed", zap.Int("entries", len(s.buf)))
	s.buf = s.buf[:0]
}

func (s *JournalSystem) record(e persist.JournalEntry) {
	if len(s.buf) >= maxBuffered {
		// oldest first
		copy(s.buf, s.buf[1:])
		s.buf = s.buf[:len(s.buf)-1]
		s.dropped++
	}
	if s.ticks != nil {
		e.Tick = s.ticks()
	}
	e.RecordedAt = time.Now()
	s.buf = append(s.buf, e)
}
