package handler

import (
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// HandleUseSpell gates and queues one skill cast. The client addresses
// skills by spellbook position: row times eight plus column, one-based.
// MP, HP and the reuse delay are charged here, in the session goroutine
// that owns the character; only the damage roll crosses to the world loop.
func HandleUseSpell(sess *net.Session, r *packet.Reader, deps *Deps) {
	row := r.ReadC()
	column := r.ReadC()
	skillID := int32(row)*8 + int32(column) + 1

	// Target fields are optional; self-targeted casts omit them.
	var targetID int32
	if r.Remaining() >= 4 {
		targetID = r.ReadD()
	}
	if r.Remaining() >= 4 {
		r.ReadH() // client-claimed target X
		r.ReadH() // client-claimed target Y
	}

	c := sess.Char
	if c.Dead {
		return
	}

	sk := deps.Skills.Get(skillID)
	if sk == nil {
		deps.Log.Debug("未知技能編號", zap.Int32("skill", skillID))
		return
	}

	now := time.Now()
	if now.Before(c.SkillDelayUntil) {
		return
	}

	cost := deps.Scripting.CalcMpCost(sk.MpConsume, int(c.Intel))
	if int(c.MP) < cost || int(c.HP) <= sk.HpConsume {
		return
	}
	c.MP -= int16(cost)
	c.HP -= int16(sk.HpConsume)
	if sk.ReuseDelay > 0 {
		c.SkillDelayUntil = now.Add(time.Duration(sk.ReuseDelay) * deps.Config.Engine.TickRate)
	}

	// The stat window shows the spent MP immediately, even if the cast
	// fizzles against magic resistance later.
	sendOwnStatus(sess)

	enqueue(deps, SkillCastCommand{
		Caster:   sess,
		CharID:   c.CharID,
		Pos:      c.Pos,
		Level:    c.Level,
		Intel:    c.Intel,
		Skill:    sk,
		TargetID: targetID,
	})
}
