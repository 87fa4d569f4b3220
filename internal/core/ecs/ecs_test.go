package ecs

import "testing"

func TestAllocatorReuseInvalidatesStaleHandles(t *testing.T) {
	a := NewAllocator()
	first := a.Create()
	if first.IsZero() {
		t.Fatalf("allocator handed out the zero id")
	}
	if !a.Alive(first) {
		t.Fatalf("fresh handle not alive")
	}
	if !a.Destroy(first) {
		t.Fatalf("destroy of live handle failed")
	}
	if a.Destroy(first) {
		t.Fatalf("double destroy reported success")
	}

	second := a.Create()
	if second.Index() != first.Index() {
		t.Fatalf("slot not reused: %d vs %d", second.Index(), first.Index())
	}
	if second.Generation() == first.Generation() {
		t.Fatalf("generation not bumped")
	}
	if a.Alive(first) {
		t.Fatalf("stale handle reported alive")
	}
	if a.Live() != 1 {
		t.Fatalf("expected 1 live, got %d", a.Live())
	}
}

func TestWorldDeferredDestroy(t *testing.T) {
	type poison struct{ ticks int }

	w := NewWorld()
	store := NewStore[poison]()
	w.Register(store)

	id := w.CreateEntity()
	store.Set(id, &poison{ticks: 3})

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	if w.Pending() != 1 {
		t.Fatalf("duplicate mark queued twice")
	}
	if !w.Alive(id) || !store.Has(id) {
		t.Fatalf("entity destroyed before flush")
	}

	w.FlushDestroyQueue()
	if w.Alive(id) {
		t.Fatalf("entity alive after flush")
	}
	if store.Has(id) {
		t.Fatalf("component survived flush")
	}
	if w.Pending() != 0 || w.Live() != 0 {
		t.Fatalf("queue not drained: pending=%d live=%d", w.Pending(), w.Live())
	}
}
