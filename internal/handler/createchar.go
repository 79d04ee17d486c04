package handler

import (
	"context"
	"fmt"
	"unicode"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/persist"
	"github.com/linworld/server/internal/scripting"
)

// Creation result codes for S_OPCODE_CREATE_CHARACTER_CHECK.
const (
	charCreateOK          = 0x02
	charCreateNameExists  = 0x06
	charCreateInvalidName = 0x09
	charCreateWrongAmount = 0x15
)

// Fresh characters appear at the starting village.
const (
	startX     int32 = 32689
	startY     int32 = 32842
	startMapID int16 = 2005
)

// createStatTotal is the fixed point budget every new character distributes.
const createStatTotal = 75

// HandleCreateCharacter validates and persists a new character, then
// answers with a status code and, on success, the new select-screen entry.
func HandleCreateCharacter(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	classType := int16(r.ReadC())
	sex := int16(r.ReadC())
	str := int16(r.ReadC())
	dex := int16(r.ReadC())
	con := int16(r.ReadC())
	wis := int16(r.ReadC())
	cha := int16(r.ReadC())
	intel := int16(r.ReadC())

	if !validCharName(name) {
		sendCharCreateStatus(sess, charCreateInvalidName)
		return
	}
	if sex != 0 && sex != 1 {
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}

	base := deps.Scripting.GetCharCreateData(int(classType))
	if base == nil {
		deps.Log.Warn(fmt.Sprintf("不明職業的建立請求  帳號=%s  職業=%d", sess.Account, classType))
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}
	if !statsWithinBudget(base, str, dex, con, wis, cha, intel) {
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	exists, err := deps.Characters.NameExists(ctx, name)
	if err != nil {
		deps.Log.Error(fmt.Sprintf("角色名稱查詢失敗  名稱=%s", name), zap.Error(err))
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}
	if exists {
		sendCharCreateStatus(sess, charCreateNameExists)
		return
	}

	count, err := deps.Characters.CountByAccount(ctx, sess.Account)
	if err != nil {
		deps.Log.Error(fmt.Sprintf("角色數量查詢失敗  帳號=%s", sess.Account), zap.Error(err))
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}
	maxSlots := deps.Config.Character.DefaultSlots
	if account, err := deps.Accounts.Load(ctx, sess.Account); err == nil && account != nil {
		maxSlots += int(account.CharacterSlot)
	}
	if count >= maxSlots {
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}

	gfx := base.MaleGfx
	if sex == 1 {
		gfx = base.FemaleGfx
	}
	hp := int16(deps.Scripting.CalcInitHP(int(classType), int(con)))
	mp := int16(deps.Scripting.CalcInitMP(int(classType), int(wis)))
	if hp < 1 {
		deps.Log.Error(fmt.Sprintf("初始 HP 計算失敗  職業=%d", classType))
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}

	c := &persist.CharacterRow{
		AccountName: sess.Account,
		Name:        name,
		ClassType:   classType,
		Sex:         sex,
		ClassID:     gfx,
		Str:         str,
		Dex:         dex,
		Con:         con,
		Wis:         wis,
		Cha:         cha,
		Intel:       intel,
		Level:       1,
		HP:          hp,
		MP:          mp,
		MaxHP:       hp,
		MaxMP:       mp,
		AC:          10,
		X:           startX,
		Y:           startY,
		MapID:       startMapID,
	}
	if err := deps.Characters.Create(ctx, c); err != nil {
		deps.Log.Error(fmt.Sprintf("角色建立寫入失敗  帳號=%s  角色=%s", sess.Account, name), zap.Error(err))
		sendCharCreateStatus(sess, charCreateWrongAmount)
		return
	}

	deps.Log.Info(fmt.Sprintf("角色建立成功  帳號=%s  角色=%s  職業=%d", sess.Account, name, classType))

	sendCharCreateStatus(sess, charCreateOK)
	sess.Send(buildCharInfo(packet.S_OPCODE_NEW_CHAR_INFO, c))
}

// validCharName rejects empty, oversized and non-alphanumeric names. The
// client field caps out at sixteen bytes.
func validCharName(name string) bool {
	if name == "" || len(name) > 16 {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// statsWithinBudget checks each stat sits between the class minimum and the
// minimum plus the distributable bonus, and that nothing was smuggled in:
// the six stats must sum to exactly the fixed budget.
func statsWithinBudget(base *scripting.CharCreateData, str, dex, con, wis, cha, intel int16) bool {
	total := int(str) + int(dex) + int(con) + int(wis) + int(cha) + int(intel)
	if total != createStatTotal {
		return false
	}
	inRange := func(v int16, lo int) bool {
		return int(v) >= lo && int(v) <= lo+base.Bonus
	}
	return inRange(str, base.BaseStr) && inRange(dex, base.BaseDex) &&
		inRange(con, base.BaseCon) && inRange(wis, base.BaseWis) &&
		inRange(cha, base.BaseCha) && inRange(intel, base.BaseInt)
}

func sendCharCreateStatus(sess *net.Session, code byte) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CREATE_CHARACTER_CHECK)
	w.WriteC(code)
	w.WriteD(0)
	w.WriteH(0)
	sess.Send(w)
}
