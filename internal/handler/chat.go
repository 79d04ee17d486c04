package handler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// Chat types as sent by the client.
const (
	chatNormal = 0
	chatShout  = 2
	chatWorld  = 3
)

// HandleChat routes one chat line. Normal talk and shouts stay within the
// sender's surroundings; world chat crosses the whole registry regardless
// of map.
func HandleChat(sess *net.Session, r *packet.Reader, deps *Deps) {
	chatType := r.ReadC()
	text := r.ReadS()
	if text == "" {
		return
	}
	c := sess.Char

	switch chatType {
	case chatNormal:
		w := packet.NewWriterWithOpcode(packet.S_OPCODE_SAY)
		w.WriteC(chatNormal)
		w.WriteD(c.CharID)
		w.WriteS(fmt.Sprintf("%s: %s", c.Name, text))
		sess.Send(w)
		deps.Registry.Broadcast(c.Pos, c.CharID, w.Bytes())

	case chatShout:
		w := packet.NewWriterWithOpcode(packet.S_OPCODE_SAY)
		w.WriteC(chatShout)
		w.WriteD(c.CharID)
		w.WriteS(fmt.Sprintf("<%s> %s", c.Name, text))
		w.WriteH(uint16(c.Pos.X))
		w.WriteH(uint16(c.Pos.Y))
		sess.Send(w)
		deps.Registry.Broadcast(c.Pos, c.CharID, w.Bytes())

	case chatWorld:
		w := packet.NewWriterWithOpcode(packet.S_OPCODE_MESSAGE)
		w.WriteC(chatWorld)
		w.WriteS(fmt.Sprintf("[%s] %s", c.Name, text))
		// Exclude nobody: the sender reads their own line back too.
		deps.Registry.BroadcastAll(0, w.Bytes())

	default:
		deps.Log.Debug("忽略未支援的聊天類型", zap.Uint8("type", chatType))
	}
}
