package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadFlavor_EmptyConfigurations(t *testing.T) {
	f, err := LoadFlavor("", zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = LoadFlavor(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, f, "directory without .lua files yields no Flavor")

	// Nil Flavor is safe to call.
	assert.Empty(t, f.OnAttack("a", "b", true, false))
	assert.Empty(t, f.OnPhase("player", 1))
}

func TestFlavor_Hooks(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "flavor.lua", `
function flavor_attack(attacker, target, hit, critical)
  if critical then
    return attacker .. " strikes true!"
  end
  if not hit then
    return target .. " laughs"
  end
  return ""
end

function flavor_phase(phase, round)
  return "round " .. round .. " (" .. phase .. ")"
end
`)
	f, err := LoadFlavor(dir, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "Alice strikes true!", f.OnAttack("Alice", "Goblin", true, true))
	assert.Equal(t, "Goblin laughs", f.OnAttack("Alice", "Goblin", false, false))
	assert.Empty(t, f.OnAttack("Alice", "Goblin", true, false))
	assert.Equal(t, "round 2 (enemy)", f.OnPhase("enemy", 2))
}

func TestFlavor_MissingHookAndBadReturn(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "flavor.lua", `
function flavor_phase(phase, round)
  return 42
end
`)
	f, err := LoadFlavor(dir, zap.NewNop())
	require.NoError(t, err)

	assert.Empty(t, f.OnAttack("a", "b", true, false), "undefined hook returns nothing")
	assert.Empty(t, f.OnPhase("player", 1), "non-string return is dropped")
}

func TestLoadFlavor_RejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", `function flavor_attack( oops`)
	_, err := LoadFlavor(dir, zap.NewNop())
	assert.Error(t, err)
}

func TestSandbox_StripsDangerousGlobals(t *testing.T) {
	L := NewSandboxedState(0)
	defer L.Close()

	err := L.DoString(`assert(dofile == nil and loadfile == nil and load == nil and require == nil)`)
	assert.NoError(t, err)
}

func TestSandbox_InstructionLimit(t *testing.T) {
	L := NewSandboxedState(1000)
	defer L.Close()

	err := L.DoString(`while true do end`)
	assert.Error(t, err, "runaway loop must be cut off")
}
