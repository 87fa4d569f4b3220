package pool

import (
	"fmt"

	"go.uber.org/zap"
)

// Registry lazily creates one Pool per key and keeps it for the registry's
// lifetime. Keys are compared with ==, so pointer keys give identity semantics.
type Registry[K comparable, T comparable] struct {
	defaults Capacity
	build    func(K) Hooks[T]
	log      *zap.Logger

	// CapacityFor optionally overrides the defaults for a key.
	CapacityFor func(K) (Capacity, bool)
	// NameFor labels a pool in logs and metrics. Defaults to fmt %v of the key.
	NameFor func(K) string

	pools map[K]*Pool[T]
	order []K // insertion order, for deterministic iteration
}

func NewRegistry[K comparable, T comparable](defaults Capacity, build func(K) Hooks[T], log *zap.Logger) *Registry[K, T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry[K, T]{
		defaults: defaults.normalize(),
		build:    build,
		log:      log,
		pools:    make(map[K]*Pool[T], 16),
	}
}

// GetOrCreate returns the pool for key, creating it on first request.
func (r *Registry[K, T]) GetOrCreate(key K) *Pool[T] {
	if p, ok := r.pools[key]; ok {
		return p
	}

	capacity := r.defaults
	if r.CapacityFor != nil {
		if c, ok := r.CapacityFor(key); ok {
			capacity = c
		}
	}

	name := r.name(key)
	p := New(name, capacity, r.build(key), r.log)
	r.pools[key] = p
	r.order = append(r.order, key)

	r.log.Debug("pool created",
		zap.String("pool", name),
		zap.Int("default", p.Capacity().Default),
		zap.Int("max", p.Capacity().Max),
	)
	return p
}

// Lookup returns the pool for key without creating one.
func (r *Registry[K, T]) Lookup(key K) (*Pool[T], bool) {
	p, ok := r.pools[key]
	return p, ok
}

func (r *Registry[K, T]) Len() int { return len(r.pools) }

// Each visits pools in creation order.
func (r *Registry[K, T]) Each(fn func(K, *Pool[T])) {
	for _, k := range r.order {
		fn(k, r.pools[k])
	}
}

// DisposeAll disposes every pool. Pools stay registered.
func (r *Registry[K, T]) DisposeAll() {
	for _, k := range r.order {
		r.pools[k].Dispose()
	}
}

func (r *Registry[K, T]) name(key K) string {
	if r.NameFor != nil {
		return r.NameFor(key)
	}
	return fmt.Sprintf("%v", key)
}
