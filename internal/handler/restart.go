package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// HandleRestart re-enters the world after death: the character is reloaded
// from its saved row and the whole entry sequence replays at the saved
// position. The session never leaves the in-world state.
func HandleRestart(sess *net.Session, _ *packet.Reader, deps *Deps) {
	old := sess.Char

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	row, err := deps.Characters.LoadByName(ctx, old.Name)
	if err != nil || row == nil {
		deps.Log.Error(fmt.Sprintf("重新載入角色失敗  角色=%s", old.Name), zap.Error(err))
		return
	}

	// Vanish from the old spot before re-appearing; the reload may have
	// moved the character.
	deps.Registry.Broadcast(old.Pos, old.CharID, BuildRemoveObject(old.CharID).Bytes())

	sess.Char = activeFromRow(row)
	sendWorldInit(sess)
	enterWorldArea(sess, deps)
	sendGameTime(sess)

	deps.Log.Info(fmt.Sprintf("角色重新進入世界  帳號=%s  角色=%s", sess.Account, row.Name))
}
