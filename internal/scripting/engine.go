package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/game"
)

// Engine wraps a single gopher-lua VM holding the server's tuning scripts.
// Single-goroutine access only.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in scriptsDir.
// A missing directory yields an engine with no functions defined.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("MAX_HEALTH", lua.LNumber(game.MaxHealth))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString is used by tests and tools to load inline source.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("MAX_HEALTH", lua.LNumber(game.MaxHealth))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

func (e *Engine) Close() { e.vm.Close() }

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
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
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// SpellTable passes each spell's base delta through Lua
// spell_hp_delta(name, base). Spells the script does not answer for, or that
// raise an error, keep their base value.
func (e *Engine) SpellTable(base [game.SpellCount]int) [game.SpellCount]int {
	out := base
	fn := e.vm.GetGlobal("spell_hp_delta")
	if fn == lua.LNil {
		return out
	}

	for s := game.Spell(0); s < game.SpellCount; s++ {
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, lua.LString(s.String()), lua.LNumber(base[s])); err != nil {
			e.log.Error("lua spell_hp_delta error", zap.Error(err), zap.Stringer("spell", s))
			continue
		}

		ret := e.vm.Get(-1)
		e.vm.Pop(1)

		n, ok := ret.(lua.LNumber)
		if !ok {
			if ret != lua.LNil {
				e.log.Warn("lua spell_hp_delta returned non-number",
					zap.Stringer("spell", s), zap.String("type", ret.Type().String()))
			}
			continue
		}
		out[s] = int(n)
	}
	return out
}
