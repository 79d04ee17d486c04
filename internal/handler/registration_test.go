package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linworld/server/internal/net/packet"
)

type dispatchResult int

const (
	resultIgnored dispatchResult = iota // unknown opcode, dropped silently
	resultRefused                       // known opcode, state not allowed
	resultHandled                       // handler body ran
)

func newDispatchTable(t *testing.T) *packet.Registry {
	t.Helper()
	reg := packet.NewRegistry(zap.NewNop())
	RegisterAll(reg, &Deps{Log: zap.NewNop()})
	return reg
}

// probe dispatches one opcode with a stub session. Real handlers downcast
// the session first thing and panic on the stub; the registry converts
// that into an error, which tells us the handler body actually started.
// A refused dispatch never reaches the handler at all.
func probe(t *testing.T, reg *packet.Registry, st packet.SessionState, opcode byte) dispatchResult {
	t.Helper()
	err := reg.Dispatch(struct{}{}, st, []byte{opcode})
	switch {
	case err == nil:
		return resultIgnored
	case strings.Contains(err.Error(), "not allowed"):
		return resultRefused
	case strings.Contains(err.Error(), "panic"):
		return resultHandled
	default:
		t.Fatalf("unexpected dispatch result: %v", err)
		return resultIgnored
	}
}

// Before the version check the server answers exactly one opcode.
func TestHandshakeAcceptsOnlyVersion(t *testing.T) {
	reg := newDispatchTable(t)
	for op := 0; op < 256; op++ {
		got := probe(t, reg, packet.StateHandshake, byte(op))
		if byte(op) == packet.C_OPCODE_VERSION {
			require.Equal(t, resultHandled, got)
		} else {
			require.NotEqual(t, resultHandled, got, "opcode %d reachable during handshake", op)
		}
	}
}

func TestLoginOnlyAfterVersionCheck(t *testing.T) {
	reg := newDispatchTable(t)
	for _, op := range []byte{packet.C_OPCODE_LOGIN, packet.C_OPCODE_BEANFUN_LOGIN} {
		require.Equal(t, resultHandled, probe(t, reg, packet.StateVersionOK, op))
		require.Equal(t, resultRefused, probe(t, reg, packet.StateHandshake, op))
		require.Equal(t, resultRefused, probe(t, reg, packet.StateAuthenticated, op))
		require.Equal(t, resultRefused, probe(t, reg, packet.StateInWorld, op))
	}
}

func TestWorldOpcodesNeedInWorld(t *testing.T) {
	reg := newDispatchTable(t)
	ops := []byte{
		packet.C_OPCODE_MOVE, packet.C_OPCODE_CHANGE_DIRECTION, packet.C_OPCODE_CHAT,
		packet.C_OPCODE_ATTACK, packet.C_OPCODE_FAR_ATTACK, packet.C_OPCODE_USE_SPELL,
		packet.C_OPCODE_RESTART, packet.C_OPCODE_SAVEIO,
	}
	outside := []packet.SessionState{
		packet.StateHandshake, packet.StateVersionOK, packet.StateAuthenticated,
	}
	for _, op := range ops {
		require.Equal(t, resultHandled, probe(t, reg, packet.StateInWorld, op), "opcode %d", op)
		for _, st := range outside {
			require.Equal(t, resultRefused, probe(t, reg, st, op), "opcode %d in %s", op, st)
		}
	}
}

func TestCharacterScreenOpcodesNeedAuth(t *testing.T) {
	reg := newDispatchTable(t)
	ops := []byte{
		packet.C_OPCODE_CREATE_CUSTOM_CHARACTER,
		packet.C_OPCODE_DELETE_CHARACTER,
		packet.C_OPCODE_ENTER_WORLD,
	}
	outside := []packet.SessionState{
		packet.StateHandshake, packet.StateVersionOK, packet.StateInWorld,
	}
	for _, op := range ops {
		require.Equal(t, resultHandled, probe(t, reg, packet.StateAuthenticated, op), "opcode %d", op)
		for _, st := range outside {
			require.Equal(t, resultRefused, probe(t, reg, st, op), "opcode %d in %s", op, st)
		}
	}
}

func TestReturnToSelectFromBothSides(t *testing.T) {
	reg := newDispatchTable(t)
	op := packet.C_OPCODE_REQUEST_ROLL
	require.Equal(t, resultHandled, probe(t, reg, packet.StateAuthenticated, op))
	require.Equal(t, resultHandled, probe(t, reg, packet.StateInWorld, op))
	require.Equal(t, resultRefused, probe(t, reg, packet.StateHandshake, op))
	require.Equal(t, resultRefused, probe(t, reg, packet.StateVersionOK, op))
}

func TestQuitWorksInEveryLiveState(t *testing.T) {
	reg := newDispatchTable(t)
	live := []packet.SessionState{
		packet.StateVersionOK, packet.StateAuthenticated, packet.StateInWorld,
	}
	for _, st := range live {
		require.Equal(t, resultHandled, probe(t, reg, st, packet.C_OPCODE_QUIT), "state %s", st)
	}
	require.Equal(t, resultRefused, probe(t, reg, packet.StateHandshake, packet.C_OPCODE_QUIT))
}

func TestKeepAliveIsANoOp(t *testing.T) {
	reg := newDispatchTable(t)
	live := []packet.SessionState{
		packet.StateVersionOK, packet.StateAuthenticated, packet.StateInWorld,
	}
	for _, st := range live {
		require.NoError(t, reg.Dispatch(struct{}{}, st, []byte{packet.C_OPCODE_ALIVE}))
	}
	require.Equal(t, resultRefused, probe(t, reg, packet.StateHandshake, packet.C_OPCODE_ALIVE))
}
