package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn(msg)
//	engine.random.float()   -> number in [0, 1)
//	engine.random.intn(n)   -> integer in [0, n)
//	engine.math.clamp(v, lo, hi)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.newLogModule(L))
	L.SetField(engine, "random", m.newRandomModule(L))
	L.SetField(engine, "math", newMathModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) newLogModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
	}
	for name, fn := range levels {
		logFn := fn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) newRandomModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "float", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.src.Float64()))
		return 1
	}))
	L.SetField(mod, "intn", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be positive")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(n)))
		return 1
	}))
	return mod
}

func newMathModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "clamp", L.NewFunction(func(L *lua.LState) int {
		v := float64(L.CheckNumber(1))
		lo := float64(L.CheckNumber(2))
		hi := float64(L.CheckNumber(3))
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		L.Push(lua.LNumber(v))
		return 1
	}))
	return mod
}
