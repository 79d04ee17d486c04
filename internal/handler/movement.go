package handler

import (
	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/spatial"
	"github.com/linworld/server/internal/world"
)

// HandleMove advances the character one tile. The coordinates in the packet
// are what the client thinks its position is and are ignored outright: the
// server-tracked position plus the heading decide the destination, so a
// client lying about X/Y teleports nowhere.
func HandleMove(sess *net.Session, r *packet.Reader, deps *Deps) {
	r.ReadH() // client-claimed X
	r.ReadH() // client-claimed Y
	heading := r.ReadC() ^ 0x49
	if heading > 7 {
		return
	}
	c := sess.Char

	from := c.Pos
	to := from
	to.X += spatial.HeadingDX[heading]
	to.Y += spatial.HeadingDY[heading]
	to.Heading = heading

	wasNearby := deps.Registry.Nearby(from, c.CharID)
	c.Pos = to
	deps.Registry.UpdatePosition(c.CharID, to)
	nowNearby := deps.Registry.Nearby(to, c.CharID)

	// One step changes three audiences: players keeping me in view get the
	// step, players entering view swap appearance packets with me, players
	// dropping out of view swap removals.
	stillInView := make(map[int32]world.Player, len(wasNearby))
	for _, p := range wasNearby {
		stillInView[p.CharID] = p
	}

	move := BuildMoveObject(c.CharID, from.X, from.Y, heading).Bytes()
	myPack := buildCharPack(c.Snapshot(sess.ID, sess)).Bytes()

	for _, p := range nowNearby {
		if _, ok := stillInView[p.CharID]; ok {
			delete(stillInView, p.CharID)
			if p.Session != nil {
				p.Session.Deliver(move)
			}
			continue
		}
		if p.Session != nil {
			p.Session.Deliver(myPack)
		}
		sess.Send(buildCharPack(p))
	}

	myRemove := BuildRemoveObject(c.CharID).Bytes()
	for _, p := range stillInView {
		if p.Session != nil {
			p.Session.Deliver(myRemove)
		}
		sess.Send(BuildRemoveObject(p.CharID))
	}
}

// HandleChangeDirection turns the character in place. Unlike movement the
// heading byte arrives unmasked.
func HandleChangeDirection(sess *net.Session, r *packet.Reader, deps *Deps) {
	heading := r.ReadC()
	if heading > 7 {
		return
	}
	c := sess.Char

	c.Pos.Heading = heading
	deps.Registry.UpdatePosition(c.CharID, c.Pos)
	deps.Registry.Broadcast(c.Pos, c.CharID, BuildChangeHeading(c.CharID, heading).Bytes())
}
