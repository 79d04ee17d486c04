// Package handler contains the per-opcode packet handlers. Handlers run in
// the owning session's goroutine: they may touch sess.Char freely, talk to
// the database with a bounded context, and reply with sess.Send. Anything
// that needs the tick engine goes through the Commands channel instead.
package handler

import (
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/config"
	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/persist"
	"github.com/linworld/server/internal/scripting"
	"github.com/linworld/server/internal/world"
)

// dbTimeout bounds every database call made from a handler. A stuck pool
// must never wedge a connection goroutine for longer than this.
const dbTimeout = 5 * time.Second

// Deps bundles everything handlers are allowed to reach.
type Deps struct {
	Accounts   *persist.AccountRepo
	Characters *persist.CharacterRepo
	Registry   *world.Registry
	Skills     *data.SkillTable
	Scripting  *scripting.Engine
	Commands   chan<- Command
	Config     *config.Config
	Log        *zap.Logger
}

// RegisterAll wires every opcode this server understands into the dispatch
// registry, each restricted to the session states where it is legal. A
// packet arriving outside its listed states is refused by the registry and
// logged; there is no handler-side state checking beyond this table.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	h := func(fn func(*net.Session, *packet.Reader, *Deps)) packet.HandlerFunc {
		return func(s any, r *packet.Reader) {
			fn(s.(*net.Session), r, deps)
		}
	}

	handshake := []packet.SessionState{packet.StateHandshake}
	versionOK := []packet.SessionState{packet.StateVersionOK}
	authed := []packet.SessionState{packet.StateAuthenticated}
	inWorld := []packet.SessionState{packet.StateInWorld}
	// Every state past the version check.
	live := []packet.SessionState{
		packet.StateVersionOK, packet.StateAuthenticated, packet.StateInWorld,
	}

	reg.Register(packet.C_OPCODE_VERSION, handshake, h(HandleVersion))

	reg.Register(packet.C_OPCODE_LOGIN, versionOK, h(HandleLogin))
	reg.Register(packet.C_OPCODE_BEANFUN_LOGIN, versionOK, h(HandleBeanfunLogin))

	reg.Register(packet.C_OPCODE_CREATE_CUSTOM_CHARACTER, authed, h(HandleCreateCharacter))
	reg.Register(packet.C_OPCODE_DELETE_CHARACTER, authed, h(HandleDeleteCharacter))
	reg.Register(packet.C_OPCODE_ENTER_WORLD, authed, h(HandleEnterWorld))

	// The client sends this both from the select screen and in game.
	reg.Register(packet.C_OPCODE_REQUEST_ROLL,
		[]packet.SessionState{packet.StateAuthenticated, packet.StateInWorld},
		h(HandleReturnToSelect))

	reg.Register(packet.C_OPCODE_MOVE, inWorld, h(HandleMove))
	reg.Register(packet.C_OPCODE_CHANGE_DIRECTION, inWorld, h(HandleChangeDirection))
	reg.Register(packet.C_OPCODE_CHAT, inWorld, h(HandleChat))
	reg.Register(packet.C_OPCODE_ATTACK, inWorld, h(HandleAttack))
	reg.Register(packet.C_OPCODE_FAR_ATTACK, inWorld, h(HandleFarAttack))
	reg.Register(packet.C_OPCODE_USE_SPELL, inWorld, h(HandleUseSpell))
	reg.Register(packet.C_OPCODE_RESTART, inWorld, h(HandleRestart))
	reg.Register(packet.C_OPCODE_SAVEIO, inWorld, h(HandleSaveIO))

	reg.Register(packet.C_OPCODE_QUIT, live, h(HandleQuit))

	// Keep-alive: no-op, just prevents the idle read timeout from biting.
	reg.Register(packet.C_OPCODE_ALIVE, live, func(any, *packet.Reader) {})
}
