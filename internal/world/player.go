package world

import (
	"time"

	"github.com/linworld/server/internal/spatial"
)

// Deliverer is an occupant's outbound delivery handle. Implementations
// must not block: a full queue is the implementation's problem (drop or
// disconnect), never the broadcaster's.
type Deliverer interface {
	Deliver(payload []byte)
}

// Player is the registry-visible snapshot of an in-world character. It
// holds only what other connections may need to see: identity, display
// fields, and position. The Registry owns every stored copy; callers get
// value copies and mutate through Registry methods only.
type Player struct {
	SessionID uint64
	CharID    int32
	Name      string
	Title     string
	ClassID   int32 // sprite GFX
	ClassType int16
	Level     int16
	Lawful    int32
	Dead      bool
	Pos       spatial.Position
	Session   Deliverer
}

// ActiveChar is the full runtime state of the character a session is
// playing. Only the owning connection goroutine touches it, so it needs
// no locking; the shared subset lives in the Registry as a Player.
type ActiveChar struct {
	CharID      int32
	AccountName string
	Name        string
	Title       string
	ClassID     int32
	ClassType   int16
	Sex         int16
	Level       int16
	Exp         int32
	HP          int16
	MaxHP       int16
	MP          int16
	MaxMP       int16
	Str         int16
	Dex         int16
	Con         int16
	Wis         int16
	Intel       int16
	Cha         int16
	AC          int16
	MR          int16
	Lawful      int32
	Pos         spatial.Position
	Dead        bool

	// Global cast cooldown: no spell may be cast before this time.
	SkillDelayUntil time.Time
}

// Snapshot builds the registry-visible Player for this character.
func (c *ActiveChar) Snapshot(sessionID uint64, deliver Deliverer) Player {
	return Player{
		SessionID: sessionID,
		CharID:    c.CharID,
		Name:      c.Name,
		Title:     c.Title,
		ClassID:   c.ClassID,
		ClassType: c.ClassType,
		Level:     c.Level,
		Lawful:    c.Lawful,
		Dead:      c.Dead,
		Pos:       c.Pos,
		Session:   deliver,
	}
}
