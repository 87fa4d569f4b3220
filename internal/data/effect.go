package data

import (
	"fmt"
	"os"
	"time"

	"github.com/l1jgo/horde/internal/core/pool"
	"gopkg.in/yaml.v3"
)

// EffectProto defines a pooled, short-lived effect: lightning strikes,
// fire patches, attack telegraphs.
type EffectProto struct {
	Kind       string        `yaml:"kind"`
	Lifetime   time.Duration `yaml:"lifetime"`
	Radius     float64       `yaml:"radius"`
	Damage     int           `yaml:"damage"`
	DamageType string        `yaml:"damage_type"`
	Knockback  float64       `yaml:"knockback"`
	// TickInterval repeats damage while alive; zero hits once on spawn.
	TickInterval time.Duration  `yaml:"tick_interval"`
	Then         string         `yaml:"then"` // effect spawned in place on expiry
	Pool         *pool.Capacity `yaml:"pool"`

	Next *EffectProto `yaml:"-"`
}

func (e *EffectProto) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.Kind
}

type effectFile struct {
	Effects []EffectProto `yaml:"effects"`
}

// EffectTable holds effect prototypes indexed by kind.
type EffectTable struct {
	byKind map[string]*EffectProto
	list   []*EffectProto
}

// LoadEffectTable reads effect prototypes from a YAML file.
func LoadEffectTable(path string) (*EffectTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read effects: %w", err)
	}
	t, err := ParseEffectTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse effects: %w", err)
	}
	return t, nil
}

func ParseEffectTable(data []byte) (*EffectTable, error) {
	var f effectFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	t := &EffectTable{
		byKind: make(map[string]*EffectProto, len(f.Effects)),
		list:   make([]*EffectProto, 0, len(f.Effects)),
	}
	for i := range f.Effects {
		e := &f.Effects[i]
		if e.Kind == "" {
			return nil, fmt.Errorf("effect #%d has no kind", i)
		}
		if _, dup := t.byKind[e.Kind]; dup {
			return nil, fmt.Errorf("duplicate effect %q", e.Kind)
		}
		if e.Lifetime <= 0 {
			return nil, fmt.Errorf("effect %q: lifetime must be positive", e.Kind)
		}
		t.byKind[e.Kind] = e
		t.list = append(t.list, e)
	}
	for _, e := range t.list {
		if e.Then == "" {
			continue
		}
		next, ok := t.byKind[e.Then]
		if !ok {
			return nil, fmt.Errorf("effect %q: unknown follow-up %q", e.Kind, e.Then)
		}
		e.Next = next
	}
	return t, nil
}

func (t *EffectTable) Get(kind string) *EffectProto {
	return t.byKind[kind]
}

func (t *EffectTable) All() []*EffectProto {
	return t.list
}

func (t *EffectTable) Count() int {
	return len(t.list)
}
