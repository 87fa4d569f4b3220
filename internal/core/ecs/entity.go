package ecs

// EntityID encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generation bumps when a slot is freed, so a handle kept by a
// chain or a death subscriber goes stale once its actor is destroyed.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Allocator hands out generational handles with slot reuse.
// Slot 0 is reserved so the zero EntityID never names a live entity.
type Allocator struct {
	generations []uint32
	freeList    []uint32
	live        int
}

func NewAllocator() *Allocator {
	return &Allocator{
		generations: make([]uint32, 1, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

func (a *Allocator) Create() EntityID {
	a.live++
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		return NewEntityID(idx, a.generations[idx])
	}
	idx := uint32(len(a.generations))
	a.generations = append(a.generations, 0)
	return NewEntityID(idx, 0)
}

func (a *Allocator) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || int(idx) >= len(a.generations) {
		return false
	}
	return a.generations[idx] == id.Generation()
}

// Destroy frees the slot. Stale or unknown handles are ignored; returns
// whether a live entity was destroyed.
func (a *Allocator) Destroy(id EntityID) bool {
	if !a.Alive(id) {
		return false
	}
	idx := id.Index()
	a.generations[idx]++
	a.freeList = append(a.freeList, idx)
	a.live--
	return true
}

// Live returns the number of handles currently allocated.
func (a *Allocator) Live() int { return a.live }
