package system

import (
	"time"

	coresys "github.com/l1jgo/horde/internal/core/system"
	"go.uber.org/zap"
)

// Reloader is implemented by the Lua engine.
type Reloader interface {
	Reload() error
}

// ScriptReloadSystem drains file-change notifications from the script
// watcher and reloads the engine at most once per tick. Phase 0 (PreUpdate).
type ScriptReloadSystem struct {
	changes <-chan string
	engine  Reloader
	log     *zap.Logger
	reloads int
}

func NewScriptReloadSystem(changes <-chan string, engine Reloader, log *zap.Logger) *ScriptReloadSystem {
	return &ScriptReloadSystem{changes: changes, engine: engine, log: log}
}

func (s *ScriptReloadSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *ScriptReloadSystem) Update(_ time.Duration) {
	var changed []string
drain:
	for {
		select {
		case name, ok := <-s.changes:
			if !ok {
				s.changes = nil
				break drain
			}
			changed = append(changed, name)
		default:
			break drain
		}
	}
	if len(changed) == 0 {
		return
	}
	if err := s.engine.Reload(); err != nil {
		s.log.Error("script reload failed, keeping previous scripts", zap.Strings("files", changed), zap.Error(err))
		return
	}
	s.reloads++
	s.log.Info("scripts hot reloaded", zap.Strings("files", changed))
}

// Reloads returns how many reloads have succeeded.
func (s *ScriptReloadSystem) Reloads() int { return s.reloads }
