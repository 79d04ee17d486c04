package handler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// Login result codes for S_OPCODE_LOGIN_CHECK.
const (
	loginOK            = 0x00
	loginWrongPassword = 0x08
	loginAccountInUse  = 0x16
)

// Action bytes inside the wrapped login opcode.
const (
	loginActionLogin  = 0x06
	loginActionLogout = 0x1c
)

// HandleLogin processes the plain credential login: account and password as
// two null-terminated strings.
func HandleLogin(sess *net.Session, r *packet.Reader, deps *Deps) {
	accountName := r.ReadS()
	password := r.ReadS()
	handleAccountLogin(sess, accountName, password, deps)
}

// HandleBeanfunLogin processes the portal login wrapper: an action byte,
// then the same credential pair. Only the login action carries credentials;
// the rest are client UI notifications.
func HandleBeanfunLogin(sess *net.Session, r *packet.Reader, deps *Deps) {
	action := r.ReadC()
	switch action {
	case loginActionLogin:
		accountName := r.ReadS()
		password := r.ReadS()
		handleAccountLogin(sess, accountName, password, deps)
	case loginActionLogout:
		sess.Close()
	default:
		deps.Log.Debug("忽略登入包裝動作", zap.Uint8("action", action))
	}
}

// handleAccountLogin is the shared credential check. Every failure answers
// with a coded login result and leaves the connection open so the client
// can retry; a database outage reads as a wrong password rather than a
// hang.
func handleAccountLogin(sess *net.Session, accountName, password string, deps *Deps) {
	accountName = strings.ToLower(strings.TrimSpace(accountName))
	if accountName == "" || password == "" {
		sendLoginResult(sess, loginWrongPassword)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	account, err := deps.Accounts.Load(ctx, accountName)
	if err != nil {
		deps.Log.Error(fmt.Sprintf("載入帳號資料庫錯誤  帳號=%s", accountName), zap.Error(err))
		sendLoginResult(sess, loginWrongPassword)
		return
	}

	if account == nil {
		if !deps.Config.Character.AutoCreateAccounts {
			sendLoginResult(sess, loginWrongPassword)
			return
		}
		account, err = deps.Accounts.Create(ctx, accountName, password, sess.IP)
		if err != nil {
			deps.Log.Error(fmt.Sprintf("自動建立帳號失敗  帳號=%s", accountName), zap.Error(err))
			sendLoginResult(sess, loginWrongPassword)
			return
		}
		deps.Log.Info(fmt.Sprintf("自動建立帳號  帳號=%s  ip=%s", accountName, sess.IP))
	} else if !deps.Accounts.ValidatePassword(account.PasswordHash, password) {
		sendLoginResult(sess, loginWrongPassword)
		return
	}

	if account.Banned {
		deps.Log.Info(fmt.Sprintf("被封鎖帳號嘗試登入  帳號=%s  ip=%s", accountName, sess.IP))
		sendLoginResult(sess, loginWrongPassword)
		return
	}
	if account.Online {
		sendLoginResult(sess, loginAccountInUse)
		return
	}

	// Flag failures are logged and ignored; losing last_active beats
	// refusing a valid login.
	if err := deps.Accounts.SetOnline(ctx, accountName, true); err != nil {
		deps.Log.Error(fmt.Sprintf("標記帳號上線失敗  帳號=%s", accountName), zap.Error(err))
	}
	if err := deps.Accounts.UpdateLastActive(ctx, accountName, sess.IP); err != nil {
		deps.Log.Error(fmt.Sprintf("更新帳號活躍時間失敗  帳號=%s", accountName), zap.Error(err))
	}

	sess.Account = accountName
	sendLoginResult(sess, loginOK)
	sess.SetState(packet.StateAuthenticated)
	sendCharacterList(sess, deps)

	deps.Log.Info(fmt.Sprintf("登入成功  帳號=%s  ip=%s", accountName, sess.IP))
}

func sendLoginResult(sess *net.Session, code int) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOGIN_CHECK)
	w.WriteH(uint16(code))
	w.WriteD(0)
	w.WriteD(0)
	w.WriteD(0)
	sess.Send(w)
}
