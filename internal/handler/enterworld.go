package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// HandleEnterWorld loads the selected character and runs the world entry
// sequence. A character that does not exist or belongs to another account
// kills the connection; that only happens with a tampering client.
func HandleEnterWorld(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	row, err := deps.Characters.LoadByName(ctx, name)
	if err != nil || row == nil {
		deps.Log.Warn(fmt.Sprintf("進入世界: 找不到角色  帳號=%s  名稱=%s", sess.Account, name), zap.Error(err))
		sess.Close()
		return
	}
	if row.AccountName != sess.Account {
		deps.Log.Warn(fmt.Sprintf("進入世界: 帳號不符  帳號=%s  名稱=%s", sess.Account, name))
		sess.Close()
		return
	}

	sess.Char = activeFromRow(row)
	sess.SetState(packet.StateInWorld)
	deps.Log.Info(fmt.Sprintf("角色進入世界  帳號=%s  角色=%s  地圖=%d", sess.Account, row.Name, row.MapID))

	sendWorldInit(sess)
	enterWorldArea(sess, deps)
	sendGameTime(sess)
}

// sendWorldInit pushes the fixed packet run the client needs before it will
// draw the world: enter-world ack, stats, map, own appearance, magic
// status, weather, resistances. Order matters; the client ignores packets
// for screens it has not opened yet.
func sendWorldInit(sess *net.Session) {
	c := sess.Char

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ENTER_WORLD_CHECK)
	w.WriteC(0x03)
	w.WriteC(0x53) // no-clan marker block
	w.WriteC(0x01)
	w.WriteC(0x00)
	w.WriteC(0x8b)
	w.WriteC(0x9c)
	w.WriteC(0x1f)
	sess.Send(w)

	sendOwnStatus(sess)

	w = packet.NewWriterWithOpcode(packet.S_OPCODE_WORLD)
	w.WriteH(uint16(c.Pos.MapID))
	w.WriteC(0) // underwater
	w.WriteD(0)
	w.WriteD(0)
	w.WriteD(0)
	sess.Send(w)

	sess.Send(buildOwnCharPack(c))

	w = packet.NewWriterWithOpcode(packet.S_OPCODE_MAGIC_STATUS)
	w.WriteC(0) // spell power
	w.WriteH(uint16(c.MR))
	sess.Send(w)

	w = packet.NewWriterWithOpcode(packet.S_OPCODE_WEATHER)
	w.WriteC(0)
	sess.Send(w)

	w = packet.NewWriterWithOpcode(packet.S_OPCODE_ABILITY_SCORES)
	w.WriteC(byte(c.AC))
	w.WriteH(0) // fire
	w.WriteH(0) // water
	w.WriteH(0) // wind
	w.WriteH(0) // earth
	sess.Send(w)
}

// enterWorldArea registers the character and exchanges appearance packets
// with everyone already nearby, then asks the world loop for the entities
// in view.
func enterWorldArea(sess *net.Session, deps *Deps) {
	c := sess.Char
	me := c.Snapshot(sess.ID, sess)
	deps.Registry.Add(me)

	deps.Registry.Broadcast(c.Pos, c.CharID, buildCharPack(me).Bytes())
	for _, other := range deps.Registry.Nearby(c.Pos, c.CharID) {
		sess.Send(buildCharPack(other))
	}

	enqueue(deps, ShowEntitiesCommand{Viewer: sess, Pos: c.Pos})
}

// sendGameTime is the last packet of the entry sequence; the client starts
// rendering when the clock arrives.
func sendGameTime(sess *net.Session) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_TIME)
	w.WriteD(worldTime())
	sess.Send(w)
}
