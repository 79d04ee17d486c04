package handler

import (
	"time"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/sim"
	"github.com/linworld/server/internal/world"
)

// Action codes for S_OPCODE_ACTION.
const (
	ActionAttack = 1
	ActionDie    = 8
)

// worldTime returns the game clock value the client expects, quantized to
// five-minute steps so every packet in a window carries the same stamp.
func worldTime() int32 {
	t := time.Now().Unix()
	return int32(t - t%300)
}

// buildOwnCharPack is the appearance packet a client gets for its own
// character. The trailing bytes differ from the pack other players receive;
// sending the other-player form to yourself renders a grey, unclickable
// model.
func buildOwnCharPack(c *world.ActiveChar) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PUT_OBJECT)
	w.WriteH(uint16(c.Pos.X))
	w.WriteH(uint16(c.Pos.Y))
	w.WriteD(c.CharID)
	w.WriteH(uint16(c.ClassID))
	w.WriteC(0) // weapon class, bare hands
	w.WriteC(c.Pos.Heading)
	w.WriteC(0) // light radius
	w.WriteC(0) // move speed
	w.WriteD(1)
	w.WriteH(uint16(c.Lawful))
	w.WriteS(c.Name)
	w.WriteS(c.Title)
	w.WriteC(0x04) // PC status flag
	w.WriteD(0)    // clan emblem
	w.WriteS("")   // clan name
	w.WriteS("")
	w.WriteC(0xb0) // no clan rank
	w.WriteC(0xff) // party HP bar off
	w.WriteC(0x00)
	w.WriteC(0x00)
	w.WriteC(0x00)
	w.WriteC(0xff)
	w.WriteC(0xff)
	w.WriteS("")
	w.WriteC(0x00)
	return w
}

// buildCharPack is the appearance packet for somebody else's character.
func buildCharPack(p world.Player) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PUT_OBJECT)
	w.WriteH(uint16(p.Pos.X))
	w.WriteH(uint16(p.Pos.Y))
	w.WriteD(p.CharID)
	w.WriteH(uint16(p.ClassID))
	w.WriteC(0) // weapon class
	w.WriteC(p.Pos.Heading)
	w.WriteC(0) // light radius
	w.WriteC(0) // move speed
	w.WriteD(1)
	w.WriteH(uint16(p.Lawful))
	w.WriteS(p.Name)
	w.WriteS(p.Title)
	w.WriteC(0x04) // PC status flag
	w.WriteD(0)    // clan emblem
	w.WriteS("")   // clan name
	w.WriteS("")
	w.WriteC(0x00)
	w.WriteC(0xff) // party HP bar off
	w.WriteC(0x00)
	w.WriteC(0x00)
	w.WriteS("") // private shop title
	w.WriteC(0xff)
	w.WriteC(0xff)
	return w
}

// BuildEntityPack is the appearance packet for a tick-engine entity. The
// world loop sends these when a player enters an entity's surroundings.
func BuildEntityPack(e *sim.Entity, nameID string) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PUT_OBJECT)
	w.WriteH(uint16(e.Pos.X))
	w.WriteH(uint16(e.Pos.Y))
	w.WriteD(e.ID)
	w.WriteH(uint16(e.GfxID))
	w.WriteC(0) // status
	w.WriteC(e.Pos.Heading)
	w.WriteC(0) // light radius
	w.WriteC(0) // move speed
	w.WriteD(e.Exp)
	w.WriteH(0) // lawful
	w.WriteS(nameID)
	w.WriteS("")
	w.WriteC(0x00)
	w.WriteD(0)
	w.WriteS("")
	w.WriteS("")
	w.WriteC(0x00) // not hidden
	w.WriteC(0xff) // HP bar off
	w.WriteC(0x00)
	w.WriteC(byte(e.Level))
	w.WriteC(0xff)
	w.WriteC(0xff)
	w.WriteC(0x00)
	return w
}

// BuildMoveObject announces one step. The client wants the tile the mover
// left plus the heading; it advances the sprite itself.
func BuildMoveObject(id, fromX, fromY int32, heading byte) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_MOVE_OBJECT)
	w.WriteD(id)
	w.WriteH(uint16(fromX))
	w.WriteH(uint16(fromY))
	w.WriteC(heading)
	w.WriteH(0)
	return w
}

// BuildRemoveObject takes an object out of a client's view.
func BuildRemoveObject(id int32) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_REMOVE_OBJECT)
	w.WriteD(id)
	return w
}

// BuildChangeHeading turns an object in place.
func BuildChangeHeading(id int32, heading byte) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CHANGEHEADING)
	w.WriteD(id)
	w.WriteC(heading)
	return w
}

// BuildMeleeAttack is the swing animation plus damage number. Zero damage
// renders as a miss.
func BuildMeleeAttack(attackerID, targetID int32, damage int, heading byte) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ATTACK)
	w.WriteC(ActionAttack)
	w.WriteD(attackerID)
	w.WriteD(targetID)
	w.WriteH(uint16(damage))
	w.WriteC(heading)
	w.WriteD(0)
	w.WriteC(0)
	return w
}

// BuildArrowAttack is the bow animation: same as melee plus an arrow
// projectile (gfx 66) flying to the target tile.
func BuildArrowAttack(attackerID, targetID int32, damage int, heading byte, toX, toY int32) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ATTACK)
	w.WriteC(ActionAttack)
	w.WriteD(attackerID)
	w.WriteD(targetID)
	w.WriteH(uint16(damage))
	w.WriteC(heading)
	w.WriteD(0)
	w.WriteC(1)
	w.WriteH(66) // arrow projectile gfx
	w.WriteC(6)
	w.WriteH(uint16(toX))
	w.WriteH(uint16(toY))
	return w
}

// BuildSkillAttack is the cast animation with spell gfx and damage number.
func BuildSkillAttack(casterID, targetID int32, damage, actionID int, castGfx int32, heading byte, toX, toY int32) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ATTACK)
	w.WriteC(byte(actionID))
	w.WriteD(casterID)
	w.WriteD(targetID)
	w.WriteH(uint16(damage))
	w.WriteC(heading)
	w.WriteD(0)
	w.WriteH(uint16(castGfx))
	w.WriteC(6)
	w.WriteH(uint16(toX))
	w.WriteH(uint16(toY))
	w.WriteD(0)
	return w
}

// BuildHpMeter updates the on-screen HP bar for an object.
func BuildHpMeter(id int32, hp, maxHP int32) *packet.Writer {
	ratio := int32(100)
	if maxHP > 0 {
		ratio = hp * 100 / maxHP
	}
	if ratio < 0 {
		ratio = 0
	}
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_HP_METER)
	w.WriteD(id)
	w.WriteH(uint16(ratio))
	return w
}

// BuildAction plays a one-shot animation (attack swing, death fall) on an
// object.
func BuildAction(id int32, code byte) *packet.Writer {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ACTION)
	w.WriteD(id)
	w.WriteC(code)
	return w
}

// sendOwnStatus pushes the full stat window to the owning client. Sent on
// world entry and whenever HP or MP change server-side.
func sendOwnStatus(sess *net.Session) {
	c := sess.Char
	level := c.Level
	if level < 1 {
		level = 1
	}
	if level > 127 {
		level = 127
	}
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_STATUS)
	w.WriteD(c.CharID)
	w.WriteC(byte(level))
	w.WriteD(c.Exp)
	w.WriteC(byte(c.Str))
	w.WriteC(byte(c.Intel))
	w.WriteC(byte(c.Wis))
	w.WriteC(byte(c.Dex))
	w.WriteC(byte(c.Con))
	w.WriteC(byte(c.Cha))
	w.WriteH(uint16(c.HP))
	w.WriteH(uint16(c.MaxHP))
	w.WriteH(uint16(c.MP))
	w.WriteH(uint16(c.MaxMP))
	w.WriteC(byte(c.AC))
	w.WriteD(worldTime())
	w.WriteC(40) // food
	w.WriteC(0)  // carry weight
	w.WriteH(uint16(c.Lawful))
	w.WriteH(0) // fire resist
	w.WriteH(0) // water resist
	w.WriteH(0) // wind resist
	w.WriteH(0) // earth resist
	w.WriteD(0)
	sess.Send(w)
}
