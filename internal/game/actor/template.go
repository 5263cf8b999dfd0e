package actor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironvein/delve/internal/game/dungeon"
)

// Template defines a reusable enemy archetype loaded from YAML. Live
// enemies are spawned from a template with Spawn; placement-specific
// tactical memory (patrol waypoints, guard post) is supplied at spawn
// time, not in the template.
type Template struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	MaxHP            int    `yaml:"max_hp"`
	AttackPower      int    `yaml:"attack_power"`
	Defense          int    `yaml:"defense"`
	Variant          string `yaml:"variant"`
	DetectionRange   int    `yaml:"detection_range"`
	AttackRange      int    `yaml:"attack_range"`
	ExperienceReward int    `yaml:"experience_reward"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1,
// AttackPower and Defense are non-negative, and Variant names a known
// behavior variant; returns an error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("enemy template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("enemy template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("enemy template %q: max_hp must be >= 1", t.ID)
	}
	if t.AttackPower < 0 {
		return fmt.Errorf("enemy template %q: attack_power must not be negative", t.ID)
	}
	if t.Defense < 0 {
		return fmt.Errorf("enemy template %q: defense must not be negative", t.ID)
	}
	if !Variant(t.Variant).IsValid() {
		return fmt.Errorf("enemy template %q: unknown variant %q", t.ID, t.Variant)
	}
	return nil
}

// Spawn creates a live enemy from the template at pos. The patrol slice
// is required for patrol-variant templates and ignored otherwise; guard
// enemies take pos as their post.
//
// Postcondition: Returns a validated *Enemy with a fresh instance id and
// full hit points, or a construction fault from NewEnemy.
func (t *Template) Spawn(pos dungeon.Coordinate, patrol []dungeon.Coordinate) (*Enemy, error) {
	return NewEnemy(Enemy{
		TemplateID:       t.ID,
		Name:             t.Name,
		Position:         pos,
		MaxHP:            t.MaxHP,
		AttackPower:      t.AttackPower,
		Defense:          t.Defense,
		Variant:          Variant(t.Variant),
		DetectionRange:   t.DetectionRange,
		AttackRange:      t.AttackRange,
		PatrolPath:       patrol,
		ExperienceReward: t.ExperienceReward,
	})
}

// LoadTemplateFromBytes parses a single enemy template from raw YAML.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing enemy template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplatesFromDir reads all *.yaml files in dir and returns the
// parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadTemplatesFromDir(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy template dir %q: %w", dir, err)
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
