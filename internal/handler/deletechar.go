package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// Deletion result codes for S_OPCODE_DELETE_CHAR_OK.
const (
	charDeleteNow     = 0x05
	charDeleteDelayed = 0x51
)

// HandleDeleteCharacter removes a character from the select screen. Low
// level characters go immediately; past the configured level the row is
// only marked and survives another seven days, matching the client's
// delete-confirmation dialog.
func HandleDeleteCharacter(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	c, err := deps.Characters.LoadByName(ctx, name)
	if err != nil {
		deps.Log.Error(fmt.Sprintf("刪除角色查詢失敗  名稱=%s", name), zap.Error(err))
		return
	}
	if c == nil {
		deps.Log.Warn(fmt.Sprintf("刪除角色: 找不到  帳號=%s  名稱=%s", sess.Account, name))
		return
	}
	if c.AccountName != sess.Account {
		deps.Log.Warn(fmt.Sprintf("刪除角色: 帳號不符  帳號=%s  名稱=%s", sess.Account, name))
		return
	}

	cfg := deps.Config.Character
	if cfg.Delete7Days && int(c.Level) >= cfg.Delete7DaysMinLevel {
		if err := deps.Characters.SoftDelete(ctx, name); err != nil {
			deps.Log.Error(fmt.Sprintf("角色軟刪除失敗  名稱=%s", name), zap.Error(err))
			return
		}
		deps.Log.Info(fmt.Sprintf("角色已軟刪除 (7天)  帳號=%s  角色=%s", sess.Account, name))
		sendDeleteCharResult(sess, charDeleteDelayed)
		return
	}

	if err := deps.Characters.HardDelete(ctx, name); err != nil {
		deps.Log.Error(fmt.Sprintf("角色刪除失敗  名稱=%s", name), zap.Error(err))
		return
	}
	deps.Log.Info(fmt.Sprintf("角色已立即刪除  帳號=%s  角色=%s", sess.Account, name))
	sendDeleteCharResult(sess, charDeleteNow)
}

func sendDeleteCharResult(sess *net.Session, code byte) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_DELETE_CHAR_OK)
	w.WriteC(code)
	sess.Send(w)
}
