package handler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net"
)

// Cleanup timeouts are tighter than the handler timeout: a dying
// connection should not hold its goroutine open for long.
const (
	cleanupSaveTimeout    = 3 * time.Second
	cleanupOfflineTimeout = 2 * time.Second
)

// Cleanup returns the disconnect hook the server runs after every session
// ends, clean logout and pulled cable alike. Every step is best-effort:
// failures are logged and the next step still runs.
func Cleanup(deps *Deps) func(*net.Session) {
	return func(sess *net.Session) {
		if c := sess.Char; c != nil {
			deps.Registry.Broadcast(c.Pos, c.CharID, BuildRemoveObject(c.CharID).Bytes())
			deps.Registry.Remove(c.CharID)

			ctx, cancel := context.WithTimeout(context.Background(), cleanupSaveTimeout)
			if err := saveActiveChar(ctx, deps, c); err != nil {
				deps.Log.Error(fmt.Sprintf("斷線儲存角色失敗  角色=%s", c.Name), zap.Error(err))
			}
			cancel()
		}

		if sess.Account != "" {
			ctx, cancel := context.WithTimeout(context.Background(), cleanupOfflineTimeout)
			if err := deps.Accounts.SetOnline(ctx, sess.Account, false); err != nil {
				deps.Log.Error(fmt.Sprintf("標記帳號離線失敗  帳號=%s", sess.Account), zap.Error(err))
			}
			cancel()
		}
	}
}
