// Package scripting provides a sandboxed GopherLua execution environment
// for strategy override hooks. It has no dependency on the match engine;
// hooks receive plain scalars and return a boolean verdict.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// load or hook call when no profile-specific override is configured.
const DefaultInstructionLimit = 100_000

// strippedGlobals are base library entries that could reach the filesystem,
// compile arbitrary chunks, or tamper with the collector.
var strippedGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// opBudget is the context a sandboxed state runs under. GopherLua polls
// Done once per executed opcode, so spending one unit per poll bounds the
// number of opcodes a call may run.
type opBudget struct {
	context.Context
	left   atomic.Int64
	cancel context.CancelFunc
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// effectiveLimit maps a configured limit onto the value actually enforced.
func effectiveLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// setBudget gives L a fresh allowance of limit opcodes, or the default when
// limit is not positive.
//
// Postcondition: the returned cancel releases the budget's context.
func setBudget(L *lua.LState, limit int) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(effectiveLimit(limit)))
	L.SetContext(b)
	return cancel
}

// NewSandboxedState returns a Lua state with only the base, table, string
// and math libraries, stripped of strippedGlobals, and holding an initial
// budget of instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns the state and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	_ = setBudget(L, instLimit)
	return L
}
