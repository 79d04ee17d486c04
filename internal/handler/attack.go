package handler

import (
	"github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
)

// HandleAttack queues a melee swing at a world entity. Resolution happens
// in the world loop; the handler only snapshots what the loop may read.
// The target coordinates in the packet are client guesses and are dropped.
func HandleAttack(sess *net.Session, r *packet.Reader, deps *Deps) {
	targetID := r.ReadD()
	r.ReadH() // client-claimed target X
	r.ReadH() // client-claimed target Y

	c := sess.Char
	if c.Dead {
		return
	}
	enqueue(deps, AttackCommand{
		Attacker: sess,
		CharID:   c.CharID,
		Pos:      c.Pos,
		Level:    c.Level,
		Str:      c.Str,
		Dex:      c.Dex,
		TargetID: targetID,
	})
}

// HandleFarAttack queues a bow shot: same contract as melee with the
// ranged flag up, which switches both the reach check and the formula.
func HandleFarAttack(sess *net.Session, r *packet.Reader, deps *Deps) {
	targetID := r.ReadD()
	r.ReadH()
	r.ReadH()

	c := sess.Char
	if c.Dead {
		return
	}
	enqueue(deps, AttackCommand{
		Attacker: sess,
		CharID:   c.CharID,
		Pos:      c.Pos,
		Level:    c.Level,
		Str:      c.Str,
		Dex:      c.Dex,
		TargetID: targetID,
		Ranged:   true,
	})
}
