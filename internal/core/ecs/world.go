package ecs

// World owns entity handles, the component stores registered against it, and
// a deferred destruction queue flushed by CleanupSystem at tick end.
type World struct {
	alloc        *Allocator
	stores       []Removable
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		alloc:        NewAllocator(),
		stores:       make([]Removable, 0, 8),
		destroyQueue: make([]EntityID, 0, 64),
		queued:       make(map[EntityID]struct{}, 64),
	}
}

// Register adds a component store so destroyed entities are removed from it.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) CreateEntity() EntityID {
	return w.alloc.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.alloc.Alive(id)
}

// Live returns the number of allocated entities, including ones queued for destruction.
func (w *World) Live() int { return w.alloc.Live() }

// RemoveComponents strips id from every registered store without freeing the handle.
func (w *World) RemoveComponents(id EntityID) {
	for _, s := range w.stores {
		s.Remove(id)
	}
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Queuing the
// same entity twice is harmless.
func (w *World) MarkForDestruction(id EntityID) {
	if _, ok := w.queued[id]; ok {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending returns the number of entities waiting in the destroy queue.
func (w *World) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities and clears their components.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.RemoveComponents(id)
		w.alloc.Destroy(id)
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
