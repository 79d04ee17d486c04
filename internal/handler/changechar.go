package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// HandleReturnToSelect drops the session back to the character select
// screen. The character is saved but stays registered in the world: it
// keeps standing where it was, visible to everyone, until this session
// enters with a character again or disconnects.
func HandleReturnToSelect(sess *net.Session, _ *packet.Reader, deps *Deps) {
	if sess.State() == packet.StateInWorld && sess.Char != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		if err := saveActiveChar(ctx, deps, sess.Char); err != nil {
			deps.Log.Error(fmt.Sprintf("返回選單儲存失敗  角色=%s", sess.Char.Name), zap.Error(err))
		}
		cancel()
		deps.Log.Info(fmt.Sprintf("返回角色選單  帳號=%s  角色=%s", sess.Account, sess.Char.Name))
	}

	sess.SetState(packet.StateAuthenticated)
	sendCharacterList(sess, deps)
}
