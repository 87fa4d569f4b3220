package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/horde/internal/core/pool"
	"gopkg.in/yaml.v3"
)

// Capability names accepted in prototypes.yaml.
const (
	CapFollow  = "follow"  // can chase a target
	CapGroup   = "group"   // takes part in leader/member groups
	CapDeath   = "death"   // reports its death to the spawner
	CapHolding = "holding" // parks under its own holding container before pooling
)

// Prototype is the static definition of one enemy kind. Pools are keyed by
// *Prototype, so each loaded entry is its own pool.
type Prototype struct {
	Name         string         `yaml:"name"`
	HP           int            `yaml:"hp"`
	Damage       int            `yaml:"damage"`
	DamageType   string         `yaml:"damage_type"`
	Speed        float64        `yaml:"speed"`
	Capabilities []string       `yaml:"capabilities"`
	Successor    string         `yaml:"successor"` // prototype spawned in place on death
	Pool         *pool.Capacity `yaml:"pool"`      // overrides [pool.enemies]

	SuccessorOnDeath *Prototype `yaml:"-"`
	caps             map[string]bool
}

// Has reports whether the prototype declares the named capability.
func (p *Prototype) Has(capability string) bool {
	if p == nil {
		return false
	}
	if p.caps == nil {
		p.caps = make(map[string]bool, len(p.Capabilities))
		for _, c := range p.Capabilities {
			p.caps[c] = true
		}
	}
	return p.caps[capability]
}

func (p *Prototype) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

type prototypeFile struct {
	Prototypes []Prototype `yaml:"prototypes"`
}

// PrototypeTable holds enemy prototypes indexed by name, in file order.
type PrototypeTable struct {
	byName map[string]*Prototype
	list   []*Prototype
}

// LoadPrototypeTable reads prototypes from a YAML file.
func LoadPrototypeTable(path string) (*PrototypeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prototypes: %w", err)
	}
	t, err := ParsePrototypeTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse prototypes: %w", err)
	}
	return t, nil
}

// ParsePrototypeTable decodes and links a prototype list.
func ParsePrototypeTable(data []byte) (*PrototypeTable, error) {
	var f prototypeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	t := &PrototypeTable{
		byName: make(map[string]*Prototype, len(f.Prototypes)),
		list:   make([]*Prototype, 0, len(f.Prototypes)),
	}
	for i := range f.Prototypes {
		p := &f.Prototypes[i]
		if p.Name == "" {
			return nil, fmt.Errorf("prototype #%d has no name", i)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate prototype %q", p.Name)
		}
		if p.HP <= 0 {
			p.HP = 1
		}
		for _, c := range p.Capabilities {
			switch c {
			case CapFollow, CapGroup, CapDeath, CapHolding:
			default:
				return nil, fmt.Errorf("prototype %q: unknown capability %q", p.Name, c)
			}
		}
		t.byName[p.Name] = p
		t.list = append(t.list, p)
	}
	for _, p := range t.list {
		if p.Successor == "" {
			continue
		}
		succ, ok := t.byName[p.Successor]
		if !ok {
			return nil, fmt.Errorf("prototype %q: unknown successor %q", p.Name, p.Successor)
		}
		p.SuccessorOnDeath = succ
	}
	return t, nil
}

// Get returns a prototype by name, or nil if not found.
func (t *PrototypeTable) Get(name string) *Prototype {
	return t.byName[name]
}

// All returns the prototypes in file order.
func (t *PrototypeTable) All() []*Prototype {
	return t.list
}

// Count returns the number of loaded prototypes.
func (t *PrototypeTable) Count() int {
	return len(t.list)
}
