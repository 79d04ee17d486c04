// Package game runs the world loop: the single goroutine that owns the
// tick engine. Each pass the runner fires the per-tick systems in phase
// order: advance the simulation and push movements out, bring due
// respawns back, sweep positions to the database. Between passes the
// loop resolves the combat commands connection goroutines queued, so a
// swing never waits out a full tick.
package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/config"
	"github.com/linworld/server/internal/core/system"
	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/handler"
	"github.com/linworld/server/internal/persist"
	"github.com/linworld/server/internal/scripting"
	"github.com/linworld/server/internal/sim"
	"github.com/linworld/server/internal/spatial"
	"github.com/linworld/server/internal/world"
)

// Reach limits for physical attacks, in tiles.
const (
	meleeReach  int32 = 2
	rangedReach int32 = 10
)

// respawnDelayTicks is how long a killed entity stays gone before its
// replacement walks out at the home tile.
const respawnDelayTicks uint64 = 150

// Loop owns the tick engine. Nothing outside this package may call into
// the engine once Run has started.
type Loop struct {
	cfg       config.EngineConfig
	engine    *sim.Engine
	registry  *world.Registry
	templates *data.TemplateTable
	scripts   *scripting.Engine
	commands  <-chan handler.Command
	log       *zap.Logger

	runner  *system.Runner
	respawn *respawnSystem
}

func NewLoop(
	cfg config.EngineConfig,
	engine *sim.Engine,
	registry *world.Registry,
	templates *data.TemplateTable,
	scripts *scripting.Engine,
	chars *persist.CharacterRepo,
	commands <-chan handler.Command,
	log *zap.Logger,
) *Loop {
	l := &Loop{
		cfg:       cfg,
		engine:    engine,
		registry:  registry,
		templates: templates,
		scripts:   scripts,
		commands:  commands,
		log:       log,
	}
	l.respawn = &respawnSystem{
		engine:   engine,
		registry: registry,
		nameID:   l.entityNameID,
		log:      log,
	}

	interval := uint64(0)
	if cfg.SaveIntervalTicks > 0 {
		interval = uint64(cfg.SaveIntervalTicks)
	}
	l.runner = system.NewRunner()
	l.runner.Register(&movementSystem{engine: engine, registry: registry, visibility: cfg.VisibilityRange})
	l.runner.Register(l.respawn)
	l.runner.Register(&autosaveSystem{engine: engine, registry: registry, chars: chars, interval: interval, log: log})
	return l
}

// Run drives the simulation until ctx is cancelled. Commands are resolved
// as they arrive, between ticks, rather than batched into the next tick.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.TickRate)
	defer ticker.Stop()

	l.log.Info(fmt.Sprintf("世界迴圈啟動  tick=%s  可視範圍=%d", l.cfg.TickRate, l.cfg.VisibilityRange))
	for {
		select {
		case <-ctx.Done():
			l.log.Info("世界迴圈停止")
			return
		case <-ticker.C:
			l.runner.Tick(l.cfg.TickRate)
		case cmd := <-l.commands:
			l.handleCommand(cmd)
		}
	}
}

func (l *Loop) handleCommand(cmd handler.Command) {
	switch c := cmd.(type) {
	case handler.AttackCommand:
		l.resolveAttack(c)
	case handler.SkillCastCommand:
		l.resolveSkill(c)
	case handler.ShowEntitiesCommand:
		l.showEntities(c)
	}
}

// resolveAttack rolls one physical attack. Out-of-reach and dead targets
// are dropped without an answer; the client animation simply plays out
// empty. A miss still broadcasts, with zero damage, so bystanders see the
// whiff.
func (l *Loop) resolveAttack(c handler.AttackCommand) {
	e := l.engine.Get(c.TargetID)
	if e == nil || !e.Alive {
		return
	}
	reach := meleeReach
	if c.Ranged {
		reach = rangedReach
	}
	if !spatial.InRange(c.Pos, e.Pos, reach) {
		return
	}

	fctx := scripting.CombatContext{
		AttackerLevel: int(c.Level),
		AttackerSTR:   int(c.Str),
		AttackerDEX:   int(c.Dex),
		TargetAC:      int(e.AC),
		TargetLevel:   int(e.Level),
		TargetMR:      int(e.MR),
	}
	var res scripting.CombatResult
	if c.Ranged {
		res = l.scripts.CalcRangedAttack(fctx)
	} else {
		res = l.scripts.CalcMeleeAttack(fctx)
	}
	dmg := 0
	if res.IsHit {
		dmg = res.Damage
	}

	heading := spatial.DirectionFromDelta(e.Pos.X-c.Pos.X, e.Pos.Y-c.Pos.Y)
	var pkt []byte
	if c.Ranged {
		pkt = handler.BuildArrowAttack(c.CharID, e.ID, dmg, heading, e.Pos.X, e.Pos.Y).Bytes()
	} else {
		pkt = handler.BuildMeleeAttack(c.CharID, e.ID, dmg, heading).Bytes()
	}
	l.registry.Broadcast(c.Pos, 0, pkt)

	if dmg > 0 {
		l.applyDamage(e, int32(dmg))
	}
}

// resolveSkill rolls one offensive cast. MP was already charged by the
// handler, so a resisted cast costs the full price, same as a whiffed
// swing costs the swing.
func (l *Loop) resolveSkill(c handler.SkillCastCommand) {
	sk := c.Skill
	e := l.engine.Get(c.TargetID)
	if e == nil || !e.Alive {
		return
	}

	reach := int32(sk.Ranged)
	if reach <= 0 {
		// Touch spells reach one tile; self spells should not arrive
		// here with an entity target at all.
		reach = 1
	}
	if !spatial.InRange(c.Pos, e.Pos, reach) {
		return
	}

	res := l.scripts.CalcSkillDamage(scripting.SkillDamageContext{
		SkillID:         int(sk.SkillID),
		DamageValue:     sk.DamageValue,
		DamageDice:      sk.DamageDice,
		DamageDiceCount: sk.DamageDiceCount,
		AttackerLevel:   int(c.Level),
		AttackerINT:     int(c.Intel),
		TargetLevel:     int(e.Level),
		TargetMR:        int(e.MR),
	})
	dmg := res.Damage
	if res.Resisted {
		dmg = 0
	}

	heading := spatial.DirectionFromDelta(e.Pos.X-c.Pos.X, e.Pos.Y-c.Pos.Y)
	pkt := handler.BuildSkillAttack(c.CharID, e.ID, dmg, sk.ActionID, sk.CastGfx, heading, e.Pos.X, e.Pos.Y).Bytes()
	l.registry.Broadcast(c.Pos, 0, pkt)

	if dmg > 0 {
		l.applyDamage(e, int32(dmg))
	}
}

// applyDamage lands damage on an entity and handles the kill: death
// animation, engine removal, on-screen removal, respawn scheduling.
func (l *Loop) applyDamage(e *sim.Entity, dmg int32) {
	hp, killed := l.engine.ApplyDamage(e.ID, dmg)
	l.registry.Broadcast(e.Pos, 0, handler.BuildHpMeter(e.ID, hp, e.MaxHP).Bytes())
	if !killed {
		return
	}

	l.registry.Broadcast(e.Pos, 0, handler.BuildAction(e.ID, handler.ActionDie).Bytes())
	l.registry.Broadcast(e.Pos, 0, handler.BuildRemoveObject(e.ID).Bytes())

	l.respawn.schedule(e.TemplateID, e.Home, l.engine.TickCount()+respawnDelayTicks)
	l.engine.Remove(e.ID)
	l.log.Debug("實體死亡", zap.Int32("id", e.ID), zap.Int32("template", e.TemplateID))
}

// showEntities answers a world-entry request with one appearance packet
// per living entity in view.
func (l *Loop) showEntities(c handler.ShowEntitiesCommand) {
	for _, e := range l.engine.NearbyEntities(c.Pos, l.cfg.VisibilityRange) {
		c.Viewer.Deliver(handler.BuildEntityPack(e, l.entityNameID(e)).Bytes())
	}
}

// entityNameID resolves the client-side name string for an entity. The
// client looks "$nnnn" ids up in its own tables; anything else displays
// verbatim.
func (l *Loop) entityNameID(e *sim.Entity) string {
	if tpl := l.templates.Get(e.TemplateID); tpl != nil && tpl.NameID != "" {
		return tpl.NameID
	}
	return e.Name
}
