package encounter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// EnemyBlueprint defines one enemy archetype inside a template, with an
// optional count range expanded at generation time.
type EnemyBlueprint struct {
	Name            string `yaml:"name"`
	ArmorClass      int    `yaml:"armor_class"`
	MaxHP           int    `yaml:"max_hp"`
	InitiativeBonus int    `yaml:"initiative_bonus"`
	ToHitBonus      int    `yaml:"to_hit_bonus"`
	Damage          string `yaml:"damage"`
	AttackName      string `yaml:"attack_name"`
	// MinCount/MaxCount bound how many copies Generate instantiates.
	// Zero values default to exactly one.
	MinCount int `yaml:"min_count"`
	MaxCount int `yaml:"max_count"`
}

// Template defines a reusable encounter archetype loaded from YAML.
type Template struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// WinType is "defeat_all_enemies" or "survive_rounds".
	WinType      string           `yaml:"win_type"`
	TargetRounds int              `yaml:"target_rounds"`
	Enemies      []EnemyBlueprint `yaml:"enemies"`
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, the win type
// is known, and every blueprint has a name, damage expression, and a
// sane count range; returns an error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("encounter template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("encounter template %q: name must not be empty", t.ID)
	}
	switch WinType(t.WinType) {
	case WinDefeatAllEnemies:
	case WinSurviveRounds:
		if t.TargetRounds < MinRounds || t.TargetRounds > MaxRounds {
			return fmt.Errorf("encounter template %q: target_rounds must be in [%d,%d]", t.ID, MinRounds, MaxRounds)
		}
	default:
		return fmt.Errorf("encounter template %q: unknown win_type %q", t.ID, t.WinType)
	}
	if len(t.Enemies) == 0 {
		return fmt.Errorf("encounter template %q: must define at least one enemy", t.ID)
	}
	for i, bp := range t.Enemies {
		if bp.Name == "" {
			return fmt.Errorf("encounter template %q: enemy %d: name must not be empty", t.ID, i)
		}
		if bp.Damage == "" {
			return fmt.Errorf("encounter template %q: enemy %q: damage must not be empty", t.ID, bp.Name)
		}
		if bp.MaxCount != 0 && bp.MaxCount < bp.MinCount {
			return fmt.Errorf("encounter template %q: enemy %q: max_count < min_count", t.ID, bp.Name)
		}
	}
	return nil
}

// intSource is the randomness needed by Generate. Satisfied by dice.Source.
type intSource interface {
	Intn(n int) int
}

// Generate instantiates an Encounter from the template for the given
// campaign. Blueprint count ranges are resolved with src; every other
// field is deterministic. The result is normalized and ready to persist.
//
// Precondition: t must have passed Validate; src must be non-nil.
// Postcondition: Returns an encounter with at least one enemy, status
// prepared, and fresh uuids throughout.
func (t *Template) Generate(campaignName string, src intSource) *Encounter {
	enc := &Encounter{
		ID:           uuid.NewString(),
		CampaignName: campaignName,
		Name:         t.Name,
		Status:       StatusPrepared,
		WinCondition: WinCondition{Type: WinType(t.WinType), TargetRounds: t.TargetRounds},
	}

	for _, bp := range t.Enemies {
		count := 1
		if bp.MinCount > 0 {
			count = bp.MinCount
		}
		if bp.MaxCount > count {
			count += src.Intn(bp.MaxCount - count + 1)
		}
		for i := 0; i < count; i++ {
			name := bp.Name
			if count > 1 {
				name = fmt.Sprintf("%s %d", bp.Name, i+1)
			}
			enc.Enemies = append(enc.Enemies, &Enemy{
				ID:              uuid.NewString(),
				Name:            name,
				ArmorClass:      bp.ArmorClass,
				MaxHP:           bp.MaxHP,
				CurrentHP:       bp.MaxHP,
				InitiativeBonus: bp.InitiativeBonus,
				ToHitBonus:      bp.ToHitBonus,
				Damage:          bp.Damage,
				AttackName:      bp.AttackName,
			})
		}
	}

	enc.Normalize()
	return enc
}

// LoadTemplateFromBytes parses a single encounter template from raw YAML.
//
// Postcondition: Returns a validated *Template or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing encounter template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed
// templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates, or an error on the first parse or
// validation failure; on error the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading encounter template dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
