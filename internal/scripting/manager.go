package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/dice"
)

// GlobalVM is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no profile VM is found.
const GlobalVM = "__global__"

// vm pairs a single-threaded LState with the lock that serialises it.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	closed bool
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.L.Close()
		v.closed = true
	}
}

// Manager owns one sandboxed LState per strategy profile and exposes hook
// dispatch.
//
// Manager is safe for concurrent use. Calls into the same VM are serialised;
// different VMs run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadProfile creates a sandboxed VM for profileID, registers the engine.*
// modules, then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: profileID must be non-empty; scriptDir must be a readable directory.
// Postcondition: the VM replaces any previous VM for profileID; returns error
// on Lua load failure.
func (m *Manager) LoadProfile(profileID, scriptDir string, instLimit int) error {
	if profileID == "" {
		return fmt.Errorf("scripting: profile ID must not be empty")
	}
	return m.loadInto(profileID, scriptDir, instLimit)
}

// LoadGlobal creates the shared VM used as a CallHook fallback from any profile.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(GlobalVM, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, path := range luaFiles {
		cancel := setBudget(L, instLimit)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	L.RemoveContext()

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	m.logger.Info("scripts loaded",
		zap.String("vm", key),
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Has reports whether a VM is registered for key.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	return ok
}

// CallHook calls the named Lua global function in profileID's VM. If the
// profile has no VM, the global VM is tried as a fallback. Returns (LNil, nil)
// if the hook is not defined or no VM exists.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil with a
// non-nil error when the hook raised a Lua error or exhausted its budget. The
// VM stays usable either way.
func (m *Manager) CallHook(profileID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[profileID]
	if !ok {
		v = m.vms[GlobalVM]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM for profile",
			zap.String("profile", profileID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return lua.LNil, nil
	}
	L := v.L

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	cancel := setBudget(L, v.limit)
	defer func() {
		cancel()
		L.RemoveContext()
	}()

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, fmt.Errorf("scripting: hook %q for %q: %w", hook, profileID, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM.
//
// Postcondition: subsequent CallHook calls return (LNil, nil).
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()

	for _, v := range vms {
		v.close()
	}
}
