package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	p := filepath.Join(dir, sub)
	require.NoError(t, os.MkdirAll(p, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p, name), []byte(body), 0o644))
}

func TestBridgePassesContextFields(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat", "echo.lua", `
function calc_melee_attack(ctx)
    return {
        is_hit = true,
        damage = ctx.attacker.level + ctx.attacker.str + ctx.target.ac,
    }
end
function calc_ranged_attack(ctx)
    return { is_hit = true, damage = ctx.attacker.dex }
end
`)
	writeScript(t, dir, "skill", "echo.lua", `
function calc_skill_damage(ctx)
    return {
        damage = ctx.skill.damage_value + ctx.attacker.intel + ctx.target.mr,
        resisted = false,
    }
end
function calc_mp_cost(base, intel)
    return base - intel
end
`)

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	melee := e.CalcMeleeAttack(CombatContext{AttackerLevel: 10, AttackerSTR: 18, TargetAC: 5})
	require.True(t, melee.IsHit)
	require.Equal(t, 33, melee.Damage)

	ranged := e.CalcRangedAttack(CombatContext{AttackerDEX: 16})
	require.Equal(t, 16, ranged.Damage)

	skill := e.CalcSkillDamage(SkillDamageContext{DamageValue: 8, AttackerINT: 12, TargetMR: 20})
	require.Equal(t, 40, skill.Damage)
	require.False(t, skill.Resisted)

	require.Equal(t, 7, e.CalcMpCost(10, 3))
}

func TestMissingFunctionFallsBack(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	res := e.CalcMeleeAttack(CombatContext{AttackerLevel: 1})
	require.True(t, res.IsHit)
	require.Equal(t, 1, res.Damage)

	sk := e.CalcSkillDamage(SkillDamageContext{})
	require.Equal(t, 1, sk.Damage)

	require.Equal(t, 0, e.CalcMpCost(10, 3))
}

func TestLuaErrorFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat", "bad.lua", `
function calc_melee_attack(ctx)
    error("boom")
end
`)
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	res := e.CalcMeleeAttack(CombatContext{})
	require.True(t, res.IsHit)
	require.Equal(t, 1, res.Damage)
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", "broken.lua", `function (`)

	_, err := NewEngine(dir, zap.NewNop())
	require.Error(t, err)
}

func TestShippedFormulas(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 200; i++ {
		res := e.CalcMeleeAttack(CombatContext{
			AttackerLevel:  30,
			AttackerSTR:    18,
			AttackerWeapon: 10,
			TargetAC:       2,
			TargetLevel:    25,
			TargetMR:       10,
		})
		if res.IsHit {
			require.GreaterOrEqual(t, res.Damage, 1)
			require.LessOrEqual(t, res.Damage, 14)
		} else {
			require.Zero(t, res.Damage)
		}
	}

	for i := 0; i < 200; i++ {
		res := e.CalcSkillDamage(SkillDamageContext{
			SkillID:         10,
			DamageValue:     8,
			DamageDice:      6,
			DamageDiceCount: 2,
			AttackerLevel:   30,
			AttackerINT:     15,
			TargetLevel:     25,
			TargetMR:        15,
		})
		if res.Resisted {
			require.Zero(t, res.Damage)
		} else {
			require.GreaterOrEqual(t, res.Damage, 1)
		}
	}

	// INT 高者消耗較低
	require.Less(t, e.CalcMpCost(10, 24), e.CalcMpCost(10, 12))
	require.GreaterOrEqual(t, e.CalcMpCost(2, 50), 1)
}

func TestShippedCharCreateData(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	// 七個職業的基礎屬性加可分配點數都必須是 75
	for classType := 0; classType <= 6; classType++ {
		data := e.GetCharCreateData(classType)
		require.NotNil(t, data, "class %d", classType)
		total := data.BaseStr + data.BaseDex + data.BaseCon +
			data.BaseWis + data.BaseCha + data.BaseInt + data.Bonus
		require.Equal(t, 75, total, "class %d", classType)
		require.NotZero(t, data.FemaleGfx, "class %d", classType)
	}

	require.Nil(t, e.GetCharCreateData(7))

	require.Greater(t, e.CalcInitHP(1, 14), e.CalcInitHP(3, 10))
	require.Greater(t, e.CalcInitMP(3, 12), e.CalcInitMP(1, 9))
}
