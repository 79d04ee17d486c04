package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EntityTemplate holds static data for a world entity type loaded from YAML.
type EntityTemplate struct {
	ID        int32  `yaml:"id"`
	Name      string `yaml:"name"`
	NameID    string `yaml:"nameid"`
	Impl      string `yaml:"impl"` // L1Monster, L1Merchant, L1Guard
	GfxID     int32  `yaml:"gfx_id"`
	Level     int16  `yaml:"level"`
	HP        int32  `yaml:"hp"`
	MP        int32  `yaml:"mp"`
	AC        int16  `yaml:"ac"`
	STR       int16  `yaml:"str"`
	DEX       int16  `yaml:"dex"`
	MR        int16  `yaml:"mr"`
	Exp       int32  `yaml:"exp"`
	Ranged    int16  `yaml:"ranged"`
	AtkSpeed  int16  `yaml:"atk_speed"`
	MoveDelay int16  `yaml:"move_delay"` // ticks between steps
	Agro      bool   `yaml:"agro"`
}

// Roaming reports whether entities of this template wander on their own.
// Merchants and guards stand still; only monsters roam.
func (t *EntityTemplate) Roaming() bool {
	return t.Impl == "L1Monster"
}

// SpawnEntry defines where and how many entities to place at boot.
type SpawnEntry struct {
	TemplateID int32 `yaml:"template_id"`
	MapID      int16 `yaml:"map_id"`
	X          int32 `yaml:"x"`
	Y          int32 `yaml:"y"`
	Count      int   `yaml:"count"`
	RandomX    int32 `yaml:"randomx"`
	RandomY    int32 `yaml:"randomy"`
	Heading    int16 `yaml:"heading"`
}

type templateListFile struct {
	Templates []EntityTemplate `yaml:"templates"`
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// TemplateTable holds all entity templates indexed by ID.
type TemplateTable struct {
	templates map[int32]*EntityTemplate
}

// NewTemplateTable builds a table from templates already in memory.
func NewTemplateTable(templates []EntityTemplate) *TemplateTable {
	t := &TemplateTable{templates: make(map[int32]*EntityTemplate, len(templates))}
	for i := range templates {
		tpl := &templates[i]
		t.templates[tpl.ID] = tpl
	}
	return t
}

// LoadTemplateTable loads entity templates from a YAML file.
func LoadTemplateTable(path string) (*TemplateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template list: %w", err)
	}
	var f templateListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse template list: %w", err)
	}
	return NewTemplateTable(f.Templates), nil
}

// Get returns a template by ID, or nil if not found.
func (t *TemplateTable) Get(id int32) *EntityTemplate {
	return t.templates[id]
}

// Count returns the number of loaded templates.
func (t *TemplateTable) Count() int {
	return len(t.templates)
}

// LoadSpawnList loads spawn entries from a YAML file.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	return f.Spawns, nil
}
