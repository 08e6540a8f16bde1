package command

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want ParseResult
	}{
		{"!attack gob-1 d20+4", ParseResult{Verb: "attack", Args: []string{"gob-1", "d20+4"}, RawArgs: "gob-1 d20+4"}},
		{"!pass", ParseResult{Verb: "pass"}},
		{"  !Pass  ", ParseResult{Verb: "pass"}},
		{"!campaign The Sunken Keep", ParseResult{Verb: "campaign", Args: []string{"The", "Sunken", "Keep"}, RawArgs: "The Sunken Keep"}},
		{"!skip all", ParseResult{Verb: "skip", Args: []string{"all"}, RawArgs: "all"}},
		{"hello there", ParseResult{}},
		{"!", ParseResult{}},
		{"", ParseResult{}},
	}
	for _, tc := range cases {
		if got := Parse(tc.line); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("!roll 2d6") {
		t.Error("command line not recognized")
	}
	if IsCommand("roll 2d6") || IsCommand("!") || IsCommand("  ") {
		t.Error("non-command recognized")
	}
}

func TestParseResult_Arg(t *testing.T) {
	p := Parse("!damage gob-1 1d6+2")
	if p.Arg(0) != "gob-1" || p.Arg(1) != "1d6+2" || p.Arg(2) != "" || p.Arg(-1) != "" {
		t.Errorf("Arg results wrong: %+v", p)
	}
}

func TestRegistry_ResolveAndAliases(t *testing.T) {
	r := DefaultRegistry()

	cmd, ok := r.Resolve("attack")
	if !ok || cmd.Handler != HandlerAttack {
		t.Fatalf("attack not resolved: %+v", cmd)
	}
	alias, ok := r.Resolve("dmg")
	if !ok || alias.Name != "damage" {
		t.Fatalf("alias dmg not resolved: %+v", alias)
	}
	if _, ok := r.Resolve("teleport"); ok {
		t.Error("unknown verb resolved")
	}

	fight, _ := r.Resolve("fight")
	if !fight.Privileged {
		t.Error("fight must be gamemaster-only")
	}
}

func TestNewRegistry_RejectsCollisions(t *testing.T) {
	if _, err := NewRegistry([]Command{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Error("duplicate verb accepted")
	}
	if _, err := NewRegistry([]Command{{Name: "a", Aliases: []string{"b"}}, {Name: "c", Aliases: []string{"b"}}}); err == nil {
		t.Error("duplicate alias accepted")
	}
	if _, err := NewRegistry([]Command{{Name: "a", Aliases: []string{"x"}}, {Name: "x"}}); err == nil {
		t.Error("alias colliding with verb accepted")
	}
}
