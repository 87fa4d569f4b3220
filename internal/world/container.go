package world

// Container is a logical parent node. Pooled actors move between the active
// container and the inactive one (or their own holding container).
type Container struct {
	Name     string
	children map[*Actor]struct{}
}

func NewContainer(name string) *Container {
	return &Container{
		Name:     name,
		children: make(map[*Actor]struct{}, 16),
	}
}

func (c *Container) Has(a *Actor) bool {
	_, ok := c.children[a]
	return ok
}

func (c *Container) Len() int { return len(c.children) }

// Each visits children in no particular order.
func (c *Container) Each(fn func(*Actor)) {
	for a := range c.children {
		fn(a)
	}
}

func (c *Container) add(a *Actor)    { c.children[a] = struct{}{} }
func (c *Container) remove(a *Actor) { delete(c.children, a) }
