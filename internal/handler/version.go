package handler

import (
	"time"

	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// 3.80C Taiwan client build fingerprints. The client compares these against
// its local files and refuses to proceed on a mismatch.
const (
	clientVersion = 0x07cbf4dd
	cacheVersion  = 0x07cbf4dd
	authVersion   = 0x77fc692d
	npcVersion    = 0x07cbf4d9
	serverType    = 0x087f7dc2
)

// HandleVersion answers the version handshake and moves the session to
// VersionOK. The payload the client sends is ignored; only reaching this
// opcode in the Handshake state matters.
func HandleVersion(sess *net.Session, _ *packet.Reader, deps *Deps) {
	srv := deps.Config.Server

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_VERSION_CHECK)
	w.WriteC(0x00)
	w.WriteC(byte(srv.ID))
	w.WriteDU(clientVersion)
	w.WriteDU(cacheVersion)
	w.WriteDU(authVersion)
	w.WriteDU(npcVersion)
	w.WriteD(int32(srv.StartTime))
	w.WriteC(0)
	w.WriteC(0)
	w.WriteC(byte(srv.Language))
	w.WriteDU(serverType)
	w.WriteD(int32(time.Now().Unix() - srv.StartTime))
	w.WriteH(0x01)
	sess.Send(w)

	sess.SetState(packet.StateVersionOK)
}
