package pool

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoFactory is returned through the diagnostic log when a pool has no Create hook.
var ErrNoFactory = errors.New("pool has no create hook")

// Hooks are the four lifecycle callbacks a pool drives. Only Create is required.
type Hooks[T any] struct {
	Create    func() (T, error)
	OnAcquire func(T)
	OnRelease func(T)
	OnDestroy func(T)
}

// Capacity sizes a pool. Default pre-sizes the free list; Max is a soft cap
// applied on release only. Acquire never blocks or fails because of Max.
type Capacity struct {
	Default int `toml:"default_capacity" yaml:"default_capacity"`
	Max     int `toml:"max_capacity" yaml:"max_capacity"`
}

func (c Capacity) normalize() Capacity {
	if c.Default < 0 {
		c.Default = 0
	}
	if c.Max < c.Default {
		c.Max = c.Default
	}
	if c.Max <= 0 {
		c.Max = 1
	}
	return c
}

// Stats is a point-in-time view of a pool's bookkeeping.
// Active + Free == Created - Destroyed holds after every call.
type Stats struct {
	Active    int
	Free      int
	Created   int
	Destroyed int
}

// Pool recycles instances of a single prototype. Instances must be comparable
// (pointers in practice) so ownership can be checked on release.
// Accessed only from the game loop goroutine.
type Pool[T comparable] struct {
	name     string
	hooks    Hooks[T]
	capacity Capacity
	log      *zap.Logger

	free      []T
	freeSet   map[T]struct{}
	active    map[T]struct{}
	created   int
	destroyed int
	disposed  bool
}

// New builds an empty pool. name is only used in diagnostics.
func New[T comparable](name string, capacity Capacity, hooks Hooks[T], log *zap.Logger) *Pool[T] {
	if log == nil {
		log = zap.NewNop()
	}
	capacity = capacity.normalize()
	return &Pool[T]{
		name:     name,
		hooks:    hooks,
		capacity: capacity,
		log:      log,
		free:     make([]T, 0, capacity.Default),
		freeSet:  make(map[T]struct{}, capacity.Default),
		active:   make(map[T]struct{}, capacity.Default),
	}
}

func (p *Pool[T]) Name() string        { return p.name }
func (p *Pool[T]) Capacity() Capacity  { return p.capacity }
func (p *Pool[T]) Disposed() bool      { return p.disposed }
func (p *Pool[T]) ActiveCount() int    { return len(p.active) }
func (p *Pool[T]) FreeCount() int      { return len(p.free) }
func (p *Pool[T]) CreatedCount() int   { return p.created }
func (p *Pool[T]) DestroyedCount() int { return p.destroyed }

func (p *Pool[T]) Stats() Stats {
	return Stats{
		Active:    len(p.active),
		Free:      len(p.free),
		Created:   p.created,
		Destroyed: p.destroyed,
	}
}

// Contains reports whether inst is currently owned by this pool, free or active.
func (p *Pool[T]) Contains(inst T) bool {
	if _, ok := p.active[inst]; ok {
		return true
	}
	_, ok := p.freeSet[inst]
	return ok
}

// IsFree reports whether inst is sitting on the free list.
func (p *Pool[T]) IsFree(inst T) bool {
	_, ok := p.freeSet[inst]
	return ok
}

// Acquire hands out a free instance (most recently released first) or creates
// a new one. A failed create is logged and reported as ok=false.
func (p *Pool[T]) Acquire() (T, bool) {
	var inst T
	if n := len(p.free); n > 0 {
		inst = p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		delete(p.freeSet, inst)
	} else {
		created, err := p.create()
		if err != nil {
			p.log.Warn("pool create failed",
				zap.String("pool", p.name),
				zap.Error(err),
			)
			return inst, false
		}
		inst = created
	}

	p.active[inst] = struct{}{}
	if p.hooks.OnAcquire != nil {
		p.hooks.OnAcquire(inst)
	}
	return inst, true
}

func (p *Pool[T]) create() (T, error) {
	var zero T
	if p.hooks.Create == nil {
		return zero, ErrNoFactory
	}
	inst, err := p.hooks.Create()
	if err != nil {
		return zero, err
	}
	if inst == zero {
		return zero, fmt.Errorf("create returned empty instance")
	}
	p.created++
	return inst, nil
}

// Release hands inst back. Instances already free or never acquired from
// this pool are left untouched and false is returned. Once the free list
// holds Max instances further releases destroy instead of keeping.
func (p *Pool[T]) Release(inst T) bool {
	var zero T
	if inst == zero {
		return false
	}
	if _, free := p.freeSet[inst]; free {
		p.log.Debug("pool release ignored: already free", zap.String("pool", p.name))
		return false
	}
	if _, ok := p.active[inst]; !ok {
		p.log.Debug("pool release ignored: foreign instance", zap.String("pool", p.name))
		return false
	}
	delete(p.active, inst)

	if p.hooks.OnRelease != nil {
		p.hooks.OnRelease(inst)
	}

	if p.disposed || len(p.free) >= p.capacity.Max {
		p.destroy(inst)
		return true
	}
	p.free = append(p.free, inst)
	p.freeSet[inst] = struct{}{}
	return true
}

// Prewarm acquires n instances and releases them again, so the free list
// holds at least n entries (bounded by Max) without net activity.
func (p *Pool[T]) Prewarm(n int) {
	if n <= 0 || p.disposed {
		return
	}
	batch := make([]T, 0, n)
	for i := 0; i < n; i++ {
		inst, ok := p.Acquire()
		if !ok {
			break
		}
		batch = append(batch, inst)
	}
	for _, inst := range batch {
		p.Release(inst)
	}
}

// Dispose destroys every free instance. Active instances are not recalled;
// releasing them later destroys them directly.
func (p *Pool[T]) Dispose() {
	for _, inst := range p.free {
		p.destroy(inst)
	}
	clear(p.free)
	p.free = p.free[:0]
	clear(p.freeSet)
	p.disposed = true
}

func (p *Pool[T]) destroy(inst T) {
	p.destroyed++
	if p.hooks.OnDestroy != nil {
		p.hooks.OnDestroy(inst)
	}
}
