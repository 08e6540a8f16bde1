package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names a flavor script may define. A script defines any subset.
const (
	hookAttack = "flavor_attack"
	hookPhase  = "flavor_phase"
)

// Flavor runs campaign flavor hooks. Each invocation executes in a fresh
// sandboxed state, so a script that exhausts its opcode budget poisons
// nothing. A nil *Flavor is valid and produces no lines.
type Flavor struct {
	source string
	logger *zap.Logger
}

// LoadFlavor reads every .lua file in dir (sorted by name, concatenated)
// and returns a Flavor, or nil when dir is empty or holds no scripts.
//
// Postcondition: Returns (nil, nil) when scripting is not configured.
func LoadFlavor(dir string, logger *zap.Logger) (*Flavor, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scripts dir %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading script %q: %w", name, err)
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}

	// Compile once up front so load errors surface at startup.
	L := NewSandboxedState(0)
	defer L.Close()
	if err := L.DoString(sb.String()); err != nil {
		return nil, fmt.Errorf("loading flavor scripts: %w", err)
	}

	logger.Info("flavor scripts loaded", zap.Strings("scripts", names))
	return &Flavor{source: sb.String(), logger: logger}, nil
}

// OnAttack returns a flavor line for an attack outcome, or "".
func (f *Flavor) OnAttack(attacker, target string, hit, critical bool) string {
	if f == nil {
		return ""
	}
	return f.call(hookAttack,
		lua.LString(attacker), lua.LString(target), lua.LBool(hit), lua.LBool(critical))
}

// OnPhase returns a flavor line for a phase announcement, or "".
func (f *Flavor) OnPhase(phase string, round int) string {
	if f == nil {
		return ""
	}
	return f.call(hookPhase, lua.LString(phase), lua.LNumber(round))
}

// call runs the named hook in a fresh sandboxed state and returns its
// string result. Missing hooks and script errors yield "".
func (f *Flavor) call(hook string, args ...lua.LValue) string {
	L := NewSandboxedState(0)
	defer L.Close()

	if err := L.DoString(f.source); err != nil {
		f.logger.Warn("flavor script failed to load", zap.String("hook", hook), zap.Error(err))
		return ""
	}
	fn := L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return ""
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		f.logger.Warn("flavor hook errored", zap.String("hook", hook), zap.Error(err))
		return ""
	}
	ret := L.Get(-1)
	L.Pop(1)
	if s, ok := ret.(lua.LString); ok {
		return string(s)
	}
	return ""
}
