package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Script directories loaded in order. Missing ones are skipped.
var scriptDirs = []string{"core", "squad", "status"}

// Engine wraps a single gopher-lua VM for tunable gameplay rules.
// Single-goroutine access only (game loop). Reload swaps the VM in place.
type Engine struct {
	dir string
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts under scriptsDir.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{dir: scriptsDir, log: log}
	vm, err := e.load()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	return e, nil
}

func (e *Engine) load() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	for _, sub := range scriptDirs {
		p := filepath.Join(e.dir, sub)
		if err := e.loadDir(vm, p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return vm, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(vm *lua.LState, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Reload rebuilds the VM from disk. On error the running VM is kept.
func (e *Engine) Reload() error {
	vm, err := e.load()
	if err != nil {
		return err
	}
	old := e.vm
	e.vm = vm
	old.Close()
	e.log.Info("lua scripts reloaded", zap.String("dir", e.dir))
	return nil
}

// HasFunc reports whether the loaded scripts define a global function.
func (e *Engine) HasFunc(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// AttackContext describes an actor about to take its turn in a chain.
type AttackContext struct {
	Prototype string
	HP        int
	MaxHP     int
	GroupID   int
	Leader    bool
	Attacks   int // turns taken since last spawn
}

// CanAttack calls the Lua can_attack function. Without one, or on a script
// error, every actor may attack.
func (e *Engine) CanAttack(ctx AttackContext) bool {
	fn := e.vm.GetGlobal("can_attack")
	if fn == lua.LNil {
		return true
	}

	t := e.vm.NewTable()
	t.RawSetString("prototype", lua.LString(ctx.Prototype))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("group_id", lua.LNumber(ctx.GroupID))
	t.RawSetString("leader", lua.LBool(ctx.Leader))
	t.RawSetString("attacks", lua.LNumber(ctx.Attacks))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua can_attack error", zap.Error(err))
		return true
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result)
}

// PoisonContext holds the data for one poison tick.
type PoisonContext struct {
	Prototype string
	HP        int
	MaxHP     int
	Base      int // damage configured when the poison was applied
	TicksLeft int
}

// PoisonDamage calls the Lua poison_damage function. Without one the base
// damage is used. Negative results are clamped to zero.
func (e *Engine) PoisonDamage(ctx PoisonContext) int {
	fn := e.vm.GetGlobal("poison_damage")
	if fn == lua.LNil {
		return ctx.Base
	}

	t := e.vm.NewTable()
	t.RawSetString("prototype", lua.LString(ctx.Prototype))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("base", lua.LNumber(ctx.Base))
	t.RawSetString("ticks_left", lua.LNumber(ctx.TicksLeft))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua poison_damage error", zap.Error(err))
		return ctx.Base
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua poison_damage returned non-number")
		return ctx.Base
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
