package world

import "github.com/l1jgo/horde/internal/squad"

// Follower is the chase capability: an actor that tracks a target.
type Follower struct {
	Target *Actor
	Speed  float64
}

// SetTarget points the follower at t. nil clears it.
func (f *Follower) SetTarget(t *Actor) { f.Target = t }

// HasTarget reports whether the current target is still worth chasing.
func (f *Follower) HasTarget() bool {
	return f.Target != nil && f.Target.Active() && !f.Target.Dead()
}

// Subscription identifies one death handler on a DeathSource.
type Subscription int

type deathHandler struct {
	id Subscription
	fn func(*Actor)
}

// DeathSource is the death-notification capability. It fires at most once
// per active lifetime; Reset re-arms it when the actor is reused.
type DeathSource struct {
	handlers []deathHandler
	nextID   Subscription
	fired    bool
}

func (d *DeathSource) Subscribe(fn func(*Actor)) Subscription {
	d.nextID++
	d.handlers = append(d.handlers, deathHandler{id: d.nextID, fn: fn})
	return d.nextID
}

// Unsubscribe drops a handler. Unknown subscriptions are ignored.
func (d *DeathSource) Unsubscribe(id Subscription) bool {
	for i, h := range d.handlers {
		if h.id == id {
			d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
			return true
		}
	}
	return false
}

func (d *DeathSource) Subscribers() int { return len(d.handlers) }
func (d *DeathSource) Fired() bool      { return d.fired }

func (d *DeathSource) fire(a *Actor) {
	if d.fired {
		return
	}
	d.fired = true
	// handlers may unsubscribe while being called
	hs := make([]deathHandler, len(d.handlers))
	copy(hs, d.handlers)
	for _, h := range hs {
		h.fn(a)
	}
}

func (d *DeathSource) rearm() { d.fired = false }

// TryGetCapability looks up an optional capability cached on the actor at
// construction. Supported: *Follower, *DeathSource, *squad.Member and
// *Container (the holding container).
func TryGetCapability[T any](a *Actor) (T, bool) {
	var zero T
	if a == nil {
		return zero, false
	}
	var v any
	switch any(zero).(type) {
	case *Follower:
		if a.Follow != nil {
			v = a.Follow
		}
	case *DeathSource:
		if a.Death != nil {
			v = a.Death
		}
	case *squad.Member:
		if a.Group != nil {
			v = a.Group
		}
	case *Container:
		if a.Holding != nil {
			v = a.Holding
		}
	}
	if v == nil {
		return zero, false
	}
	return v.(T), true
}
