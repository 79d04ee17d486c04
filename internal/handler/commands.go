package handler

import (
	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/spatial"
	"github.com/linworld/server/internal/world"
)

// Command is a request a connection goroutine hands to the world loop. The
// loop is the only goroutine allowed near the tick engine, so anything that
// reads or damages an entity crosses this channel. Commands carry value
// snapshots of the character's stats; the loop never touches session state.
type Command interface {
	command()
}

// AttackCommand asks the loop to resolve one physical attack on an entity.
type AttackCommand struct {
	Attacker world.Deliverer
	CharID   int32
	Pos      spatial.Position
	Level    int16
	Str      int16
	Dex      int16
	TargetID int32
	Ranged   bool
}

func (AttackCommand) command() {}

// SkillCastCommand asks the loop to resolve one offensive skill cast. The
// handler has already charged MP and checked the reuse delay.
type SkillCastCommand struct {
	Caster   world.Deliverer
	CharID   int32
	Pos      spatial.Position
	Level    int16
	Intel    int16
	Skill    *data.SkillInfo
	TargetID int32
}

func (SkillCastCommand) command() {}

// ShowEntitiesCommand asks the loop to send the viewer an appearance packet
// for every engine entity near Pos. Sent on world entry and restart.
type ShowEntitiesCommand struct {
	Viewer world.Deliverer
	Pos    spatial.Position
}

func (ShowEntitiesCommand) command() {}

// enqueue hands a command to the loop without ever blocking the session
// goroutine. A full queue drops the command; the client just retries.
func enqueue(deps *Deps, cmd Command) {
	select {
	case deps.Commands <- cmd:
	default:
		deps.Log.Warn("世界迴圈指令佇列已滿，丟棄指令")
	}
}
