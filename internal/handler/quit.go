package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// HandleQuit is the clean logout: acknowledge with a disconnect notice and
// drop the socket. All state cleanup happens in the disconnect hook, the
// same as for a pulled cable.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	name := ""
	if sess.Char != nil {
		name = sess.Char.Name
	}
	deps.Log.Info(fmt.Sprintf("玩家登出  session=%d  帳號=%s  角色=%s", sess.ID, sess.Account, name))

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_DISCONNECT)
	w.WriteD(0)
	sess.Send(w)
	sess.Close()
}

// HandleSaveIO is the client's own checkpoint request, sent when certain
// windows open. Position is the only runtime state worth flushing early.
func HandleSaveIO(sess *net.Session, _ *packet.Reader, deps *Deps) {
	c := sess.Char

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	err := deps.Characters.SavePosition(ctx, c.Name, c.Pos.X, c.Pos.Y, c.Pos.MapID, int16(c.Pos.Heading))
	if err != nil {
		deps.Log.Error(fmt.Sprintf("儲存角色位置失敗  角色=%s", c.Name), zap.Error(err))
	}
}
