package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SkillInfo holds a single skill template.
type SkillInfo struct {
	SkillID         int32
	Name            string
	MpConsume       int
	HpConsume       int
	ReuseDelay      int // ticks
	DamageValue     int
	DamageDice      int
	DamageDiceCount int
	Ranged          int // -1=touch, 0=self, positive=range
	ActionID        int // cast animation action
	CastGfx         int32
}

// SkillTable holds all skills indexed by SkillID.
type SkillTable struct {
	skills map[int32]*SkillInfo
}

// Get returns a skill by ID, or nil if not found.
func (t *SkillTable) Get(skillID int32) *SkillInfo {
	return t.skills[skillID]
}

// Count returns total loaded skills.
func (t *SkillTable) Count() int {
	return len(t.skills)
}

// --- YAML loading ---

// SkillEntry is the YAML shape of one skill. Exported so the data
// converter writes exactly what LoadSkillTable reads.
type SkillEntry struct {
	SkillID         int32  `yaml:"skill_id"`
	Name            string `yaml:"name"`
	MpConsume       int    `yaml:"mp_consume"`
	HpConsume       int    `yaml:"hp_consume"`
	ReuseDelay      int    `yaml:"reuse_delay"`
	DamageValue     int    `yaml:"damage_value"`
	DamageDice      int    `yaml:"damage_dice"`
	DamageDiceCount int    `yaml:"damage_dice_count"`
	Ranged          int    `yaml:"ranged"`
	ActionID        int    `yaml:"action_id"`
	CastGfx         int32  `yaml:"cast_gfx"`
}

type skillListFile struct {
	Skills []SkillEntry `yaml:"skills"`
}

// LoadSkillTable loads skill definitions from YAML.
func LoadSkillTable(path string) (*SkillTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	var f skillListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse skills: %w", err)
	}
	t := &SkillTable{skills: make(map[int32]*SkillInfo, len(f.Skills))}
	for i := range f.Skills {
		e := &f.Skills[i]
		t.skills[e.SkillID] = &SkillInfo{
			SkillID:         e.SkillID,
			Name:            e.Name,
			MpConsume:       e.MpConsume,
			HpConsume:       e.HpConsume,
			ReuseDelay:      e.ReuseDelay,
			DamageValue:     e.DamageValue,
			DamageDice:      e.DamageDice,
			DamageDiceCount: e.DamageDiceCount,
			Ranged:          e.Ranged,
			ActionID:        e.ActionID,
			CastGfx:         e.CastGfx,
		}
	}
	return t, nil
}
