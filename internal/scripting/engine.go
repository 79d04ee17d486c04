package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for game formula execution. The VM
// itself is single-threaded, so every exported call serializes on an
// internal mutex; both connection goroutines and the world loop may call in.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "character", "combat", "skill"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory. Missing directories are skipped.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// CombatContext holds pre-packed data for a physical attack calculation.
type CombatContext struct {
	AttackerLevel  int
	AttackerSTR    int
	AttackerDEX    int
	AttackerWeapon int // max weapon damage (0 = fist = 4)
	TargetAC       int
	TargetLevel    int
	TargetMR       int
}

// CombatResult is returned by the Lua combat functions.
type CombatResult struct {
	IsHit  bool
	Damage int
}

func (e *Engine) combatContextTable(ctx CombatContext) *lua.LTable {
	t := e.vm.NewTable()

	atk := e.vm.NewTable()
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	atk.RawSetString("str", lua.LNumber(ctx.AttackerSTR))
	atk.RawSetString("dex", lua.LNumber(ctx.AttackerDEX))
	atk.RawSetString("weapon_dmg", lua.LNumber(ctx.AttackerWeapon))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("ac", lua.LNumber(ctx.TargetAC))
	tgt.RawSetString("level", lua.LNumber(ctx.TargetLevel))
	tgt.RawSetString("mr", lua.LNumber(ctx.TargetMR))
	t.RawSetString("target", tgt)

	return t
}

func (e *Engine) callCombatFunc(name string, ctx CombatContext) CombatResult {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return CombatResult{IsHit: true, Damage: 1}
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.combatContextTable(ctx)); err != nil {
		e.log.Error("lua combat call error", zap.String("func", name), zap.Error(err))
		return CombatResult{IsHit: true, Damage: 1}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua combat function returned non-table", zap.String("func", name))
		return CombatResult{IsHit: true, Damage: 1}
	}

	return CombatResult{
		IsHit:  rt.RawGetString("is_hit") == lua.LTrue,
		Damage: int(lua.LVAsNumber(rt.RawGetString("damage"))),
	}
}

// CalcMeleeAttack calls the Lua calc_melee_attack function.
func (e *Engine) CalcMeleeAttack(ctx CombatContext) CombatResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCombatFunc("calc_melee_attack", ctx)
}

// CalcRangedAttack calls the Lua calc_ranged_attack function.
func (e *Engine) CalcRangedAttack(ctx CombatContext) CombatResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCombatFunc("calc_ranged_attack", ctx)
}

// SkillDamageContext holds pre-packed data for skill damage calculation.
type SkillDamageContext struct {
	SkillID         int
	DamageValue     int
	DamageDice      int
	DamageDiceCount int

	AttackerLevel int
	AttackerINT   int

	TargetLevel int
	TargetMR    int
}

// SkillDamageResult is returned by the Lua skill damage function.
type SkillDamageResult struct {
	Damage   int
	Resisted bool
}

// CalcSkillDamage calls the Lua calc_skill_damage function.
func (e *Engine) CalcSkillDamage(ctx SkillDamageContext) SkillDamageResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("calc_skill_damage")
	if fn == lua.LNil {
		e.log.Error("lua function calc_skill_damage not found")
		return SkillDamageResult{Damage: 1}
	}

	t := e.vm.NewTable()

	sk := e.vm.NewTable()
	sk.RawSetString("id", lua.LNumber(ctx.SkillID))
	sk.RawSetString("damage_value", lua.LNumber(ctx.DamageValue))
	sk.RawSetString("damage_dice", lua.LNumber(ctx.DamageDice))
	sk.RawSetString("damage_dice_count", lua.LNumber(ctx.DamageDiceCount))
	t.RawSetString("skill", sk)

	atk := e.vm.NewTable()
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	atk.RawSetString("intel", lua.LNumber(ctx.AttackerINT))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("level", lua.LNumber(ctx.TargetLevel))
	tgt.RawSetString("mr", lua.LNumber(ctx.TargetMR))
	t.RawSetString("target", tgt)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_skill_damage error", zap.Error(err))
		return SkillDamageResult{Damage: 1}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua calc_skill_damage returned non-table")
		return SkillDamageResult{Damage: 1}
	}

	return SkillDamageResult{
		Damage:   lInt(rt, "damage"),
		Resisted: rt.RawGetString("resisted") == lua.LTrue,
	}
}

// CalcMpCost calls Lua calc_mp_cost(base, intel). Higher INT shaves the cost.
func (e *Engine) CalcMpCost(base, intel int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	cost := e.callIntFunc("calc_mp_cost", base, intel)
	if cost < 0 {
		return 0
	}
	return cost
}

// CharCreateData holds the per-class creation baseline from Lua: minimum
// stats, the distributable bonus and the sprite for each sex.
type CharCreateData struct {
	BaseStr   int
	BaseDex   int
	BaseCon   int
	BaseWis   int
	BaseCha   int
	BaseInt   int
	Bonus     int
	MaleGfx   int32
	FemaleGfx int32
}

// GetCharCreateData calls Lua get_char_create_data(class_type). Returns nil
// for a class the scripts do not know.
func (e *Engine) GetCharCreateData(classType int) *CharCreateData {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("get_char_create_data")
	if fn == lua.LNil {
		e.log.Error("lua function get_char_create_data not found")
		return nil
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(classType)); err != nil {
		e.log.Error("lua get_char_create_data error", zap.Error(err))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	return &CharCreateData{
		BaseStr:   lInt(rt, "str"),
		BaseDex:   lInt(rt, "dex"),
		BaseCon:   lInt(rt, "con"),
		BaseWis:   lInt(rt, "wis"),
		BaseCha:   lInt(rt, "cha"),
		BaseInt:   lInt(rt, "intel"),
		Bonus:     lInt(rt, "bonus"),
		MaleGfx:   int32(lInt(rt, "male_gfx")),
		FemaleGfx: int32(lInt(rt, "female_gfx")),
	}
}

// CalcInitHP calls Lua calc_init_hp(class_type, con) for a fresh character.
func (e *Engine) CalcInitHP(classType, con int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callIntFunc("calc_init_hp", classType, con)
}

// CalcInitMP calls Lua calc_init_mp(class_type, wis) for a fresh character.
func (e *Engine) CalcInitMP(classType, wis int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callIntFunc("calc_init_mp", classType, wis)
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// callIntFunc calls a Lua function with int args and returns an int result.
func (e *Engine) callIntFunc(name string, args ...int) int {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return 0
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
