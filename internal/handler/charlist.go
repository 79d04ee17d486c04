package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/persist"
)

// sendCharacterList pushes the character select screen: slot count first,
// then one info packet per character. Expired delayed deletions are reaped
// right before the query so a character past its seven days never shows up
// again.
func sendCharacterList(sess *net.Session, deps *Deps) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := deps.Characters.CleanExpiredDeletions(ctx, sess.Account); err != nil {
		deps.Log.Error(fmt.Sprintf("清理過期刪除記錄失敗  帳號=%s", sess.Account), zap.Error(err))
	}

	chars, err := deps.Characters.LoadByAccount(ctx, sess.Account)
	if err != nil {
		deps.Log.Error(fmt.Sprintf("載入角色列表失敗  帳號=%s", sess.Account), zap.Error(err))
		return
	}

	account, err := deps.Accounts.Load(ctx, sess.Account)
	if err != nil || account == nil {
		deps.Log.Error(fmt.Sprintf("載入帳號失敗(角色列表)  帳號=%s", sess.Account), zap.Error(err))
		return
	}
	maxSlots := deps.Config.Character.DefaultSlots + int(account.CharacterSlot)

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_NUM_CHARACTER)
	w.WriteC(byte(len(chars)))
	w.WriteC(byte(maxSlots))
	sess.Send(w)

	for i := range chars {
		sess.Send(buildCharInfo(packet.S_OPCODE_CHARACTER_INFO, &chars[i]))
	}
}

// buildCharInfo fills one select-screen entry. The same layout is reused
// with a different opcode to announce a freshly created character.
func buildCharInfo(opcode byte, c *persist.CharacterRow) *packet.Writer {
	w := packet.NewWriterWithOpcode(opcode)
	w.WriteS(c.Name)
	w.WriteS("") // clan name
	w.WriteC(byte(c.ClassType))
	w.WriteC(byte(c.Sex))
	w.WriteH(uint16(c.Lawful))
	w.WriteH(uint16(c.MaxHP))
	w.WriteH(uint16(c.MaxMP))
	w.WriteC(byte(c.AC))
	w.WriteC(byte(c.Level))
	w.WriteC(byte(c.Str))
	w.WriteC(byte(c.Dex))
	w.WriteC(byte(c.Con))
	w.WriteC(byte(c.Wis))
	w.WriteC(byte(c.Cha))
	w.WriteC(byte(c.Intel))
	w.WriteC(0) // admin flag
	w.WriteD(0) // birthday
	// The client rejects the entry if this checksum is off.
	w.WriteC(byte(c.Level) ^ byte(c.Str) ^ byte(c.Dex) ^ byte(c.Con) ^
		byte(c.Wis) ^ byte(c.Cha) ^ byte(c.Intel))
	return w
}
