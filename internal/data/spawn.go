package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnMember is one non-leader slot of a spawn group.
type SpawnMember struct {
	Prototype string     `yaml:"prototype"`
	Offset    [2]float64 `yaml:"offset"`

	Proto *Prototype `yaml:"-"`
}

// SpawnGroup places a leader and its members around an anchor point.
type SpawnGroup struct {
	GroupID int           `yaml:"group_id"`
	Leader  string        `yaml:"leader"`
	X       float64       `yaml:"x"`
	Y       float64       `yaml:"y"`
	Members []SpawnMember `yaml:"members"`

	LeaderProto *Prototype `yaml:"-"`
}

type spawnGroupFile struct {
	Groups []SpawnGroup `yaml:"groups"`
}

// LoadSpawnGroups reads spawn groups and resolves prototype names against t.
func LoadSpawnGroups(path string, t *PrototypeTable) ([]SpawnGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn groups: %w", err)
	}
	groups, err := ParseSpawnGroups(data, t)
	if err != nil {
		return nil, fmt.Errorf("parse spawn groups: %w", err)
	}
	return groups, nil
}

func ParseSpawnGroups(data []byte, t *PrototypeTable) ([]SpawnGroup, error) {
	var f spawnGroupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(f.Groups))
	for i := range f.Groups {
		g := &f.Groups[i]
		if g.GroupID <= 0 {
			return nil, fmt.Errorf("group #%d: group_id must be positive", i)
		}
		if seen[g.GroupID] {
			return nil, fmt.Errorf("duplicate group_id %d", g.GroupID)
		}
		seen[g.GroupID] = true

		g.LeaderProto = t.Get(g.Leader)
		if g.LeaderProto == nil {
			return nil, fmt.Errorf("group %d: unknown leader prototype %q", g.GroupID, g.Leader)
		}
		for j := range g.Members {
			m := &g.Members[j]
			m.Proto = t.Get(m.Prototype)
			if m.Proto == nil {
				return nil, fmt.Errorf("group %d: unknown member prototype %q", g.GroupID, m.Prototype)
			}
		}
	}
	return f.Groups, nil
}
