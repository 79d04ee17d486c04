package sim

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/spatial"
)

// ErrTemplateNotFound is returned by Spawn for an unknown template id.
var ErrTemplateNotFound = errors.New("entity template not found")

// firstEntityID is the start of the simulated-entity id space. Player
// object ids come from the database sequence and stay well below it.
const firstEntityID int32 = 0x10000000

// Movement records one entity stepping one tile during a tick.
type Movement struct {
	ID   int32
	From spatial.Position
	To   spatial.Position
}

// Entity is one simulated actor owned by the engine.
type Entity struct {
	ID         int32
	TemplateID int32
	Name       string
	GfxID      int32
	Level      int16
	HP         int32
	MaxHP      int32
	MP         int32
	MaxMP      int32
	AC         int16
	MR         int16
	Exp        int32
	Pos        spatial.Position
	Home       spatial.Position
	Alive      bool
	TargetID   int32 // 0 = no target; target-seeking AI is not wired yet

	roaming       bool
	dormant       bool
	moveDelay     int16
	moveCooldown  int16
	walkRemaining int16
}

// Engine owns every simulated entity and their spatial index entries.
// It is single-owner: exactly one goroutine may call into it, and Tick
// performs one simulation pass per call with no wall-clock tracking of
// its own. Observer positions are supplied by the driver each tick.
type Engine struct {
	log       *zap.Logger
	templates *data.TemplateTable
	entities  map[int32]*Entity
	grid      *spatial.Grid
	nextID    int32
	tickCount uint64
	rng       *rand.Rand
}

func NewEngine(templates *data.TemplateTable, visibilityRange int32, log *zap.Logger) *Engine {
	return &Engine{
		log:       log,
		templates: templates,
		entities:  make(map[int32]*Entity),
		grid:      spatial.NewGrid(visibilityRange),
		nextID:    firstEntityID,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Spawn creates an entity from a template at the given tile and registers
// it in the spatial index. An unknown template id fails without creating
// any state.
func (e *Engine) Spawn(templateID, x, y int32, mapID int16) (int32, error) {
	tpl := e.templates.Get(templateID)
	if tpl == nil {
		return 0, ErrTemplateNotFound
	}
	id := e.nextID
	e.nextID++

	pos := spatial.Position{X: x, Y: y, MapID: mapID}
	ent := &Entity{
		ID:         id,
		TemplateID: templateID,
		Name:       tpl.Name,
		GfxID:      tpl.GfxID,
		Level:      tpl.Level,
		HP:         tpl.HP,
		MaxHP:      tpl.HP,
		MP:         tpl.MP,
		MaxMP:      tpl.MP,
		AC:         tpl.AC,
		MR:         tpl.MR,
		Exp:        tpl.Exp,
		Pos:        pos,
		Home:       pos,
		Alive:      true,
		roaming:    tpl.Roaming(),
		moveDelay:  tpl.MoveDelay,
	}
	e.entities[id] = ent
	e.grid.Add(id, pos)
	return id, nil
}

// Remove deletes an entity and its spatial index entry. No-op if absent.
func (e *Engine) Remove(id int32) {
	ent, ok := e.entities[id]
	if !ok {
		return
	}
	e.grid.Remove(id, ent.Pos)
	delete(e.entities, id)
}

// Get returns an entity by id, or nil if absent.
func (e *Engine) Get(id int32) *Entity {
	return e.entities[id]
}

// Count returns the number of entities, alive or not.
func (e *Engine) Count() int {
	return len(e.entities)
}

// TickCount returns how many simulation passes have run.
func (e *Engine) TickCount() uint64 {
	return e.tickCount
}

// NearbyEntities returns the living entities within Chebyshev distance r
// of p on the same map.
func (e *Engine) NearbyEntities(p spatial.Position, r int32) []*Entity {
	var result []*Entity
	for _, id := range e.grid.Nearby(p) {
		ent := e.entities[id]
		if ent == nil || !ent.Alive {
			continue
		}
		if spatial.InRange(p, ent.Pos, r) {
			result = append(result, ent)
		}
	}
	return result
}

// ApplyDamage subtracts dmg from an entity's HP and reports the remaining
// HP and whether this blow killed it. Absent or already dead targets
// report (0, false).
func (e *Engine) ApplyDamage(id, dmg int32) (int32, bool) {
	ent, ok := e.entities[id]
	if !ok || !ent.Alive {
		return 0, false
	}
	ent.HP -= dmg
	if ent.HP <= 0 {
		ent.HP = 0
		ent.Alive = false
		return 0, true
	}
	return ent.HP, false
}

// Tick runs one simulation pass and returns every movement it produced.
// An entity with no observer within visibilityRange is dormant for the
// whole pass: its cooldown counters are frozen, not drained, so it
// resumes exactly where it left off once someone comes back into range.
func (e *Engine) Tick(observers []spatial.Position, visibilityRange int32) []Movement {
	e.tickCount++
	var moves []Movement

	for _, ent := range e.entities {
		if !ent.Alive {
			continue
		}

		observed := false
		for _, obs := range observers {
			if spatial.InRange(obs, ent.Pos, visibilityRange) {
				observed = true
				break
			}
		}
		if !observed {
			ent.dormant = true
			continue
		}
		ent.dormant = false

		if ent.moveCooldown > 0 {
			ent.moveCooldown--
			if ent.moveCooldown > 0 {
				continue
			}
		}
		if !ent.roaming || ent.TargetID != 0 {
			continue
		}

		var heading byte
		if ent.walkRemaining == 0 {
			ent.walkRemaining = int16(e.rng.Int31n(5)) + 1
			heading = byte(e.rng.Intn(8))
			if (ent.Home.X != 0 || ent.Home.Y != 0) && e.rng.Intn(3) == 0 {
				heading = spatial.DirectionFromDelta(ent.Home.X-ent.Pos.X, ent.Home.Y-ent.Pos.Y)
			}
		} else {
			ent.walkRemaining--
			heading = ent.Pos.Heading
		}

		from := ent.Pos
		to := from
		to.X += spatial.HeadingDX[heading]
		to.Y += spatial.HeadingDY[heading]
		to.Heading = heading

		e.grid.Move(ent.ID, from, to)
		ent.Pos = to
		ent.moveCooldown = ent.moveDelay
		moves = append(moves, Movement{ID: ent.ID, From: from, To: to})
	}
	return moves
}
