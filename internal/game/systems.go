package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/core/system"
	"github.com/linworld/server/internal/handler"
	"github.com/linworld/server/internal/persist"
	"github.com/linworld/server/internal/sim"
	"github.com/linworld/server/internal/spatial"
	"github.com/linworld/server/internal/world"
)

// movementSystem advances the entity engine one step and fans the
// resulting moves out to players standing nearby.
type movementSystem struct {
	engine     *sim.Engine
	registry   *world.Registry
	visibility int32
}

func (s *movementSystem) Phase() system.Phase { return system.PhaseSimulate }

func (s *movementSystem) Update(time.Duration) {
	observers := s.registry.ObserverPositions()
	for _, m := range s.engine.Tick(observers, s.visibility) {
		pkt := handler.BuildMoveObject(m.ID, m.From.X, m.From.Y, m.To.Heading).Bytes()
		s.registry.Broadcast(m.From, 0, pkt)
	}
}

type pendingRespawn struct {
	dueTick    uint64
	templateID int32
	home       spatial.Position
}

// respawnSystem replaces killed entities once their timer runs out and
// announces them to anyone in view. Kills schedule entries via schedule;
// only the loop goroutine touches pending.
type respawnSystem struct {
	engine   *sim.Engine
	registry *world.Registry
	nameID   func(*sim.Entity) string
	log      *zap.Logger
	pending  []pendingRespawn
}

func (s *respawnSystem) schedule(templateID int32, home spatial.Position, dueTick uint64) {
	s.pending = append(s.pending, pendingRespawn{
		dueTick:    dueTick,
		templateID: templateID,
		home:       home,
	})
}

func (s *respawnSystem) Phase() system.Phase { return system.PhaseSpawn }

func (s *respawnSystem) Update(time.Duration) {
	if len(s.pending) == 0 {
		return
	}
	now := s.engine.TickCount()
	kept := s.pending[:0]
	for _, rs := range s.pending {
		if rs.dueTick > now {
			kept = append(kept, rs)
			continue
		}
		id, err := s.engine.Spawn(rs.templateID, rs.home.X, rs.home.Y, rs.home.MapID)
		if err != nil {
			s.log.Warn(fmt.Sprintf("重生失敗  範本=%d", rs.templateID), zap.Error(err))
			continue
		}
		if e := s.engine.Get(id); e != nil {
			s.registry.Broadcast(e.Pos, 0, handler.BuildEntityPack(e, s.nameID(e)).Bytes())
		}
	}
	s.pending = kept
}

// autosaveTimeout bounds one whole position sweep.
const autosaveTimeout = 10 * time.Second

// autosaveSystem sweeps every in-world position into the database at a
// fixed tick interval, all rows in one transaction. Stats are saved by
// the owning sessions on logout and disconnect; position is the only
// thing that changes too fast to leave until then.
type autosaveSystem struct {
	engine   *sim.Engine
	registry *world.Registry
	chars    *persist.CharacterRepo
	interval uint64
	log      *zap.Logger
}

func (s *autosaveSystem) Phase() system.Phase { return system.PhasePersist }

func (s *autosaveSystem) Update(time.Duration) {
	if s.interval == 0 || s.chars == nil {
		return
	}
	if s.engine.TickCount()%s.interval != 0 {
		return
	}
	players := s.registry.All()
	if len(players) == 0 {
		return
	}

	rows := make([]persist.PositionSave, 0, len(players))
	for _, p := range players {
		rows = append(rows, persist.PositionSave{
			Name:    p.Name,
			X:       p.Pos.X,
			Y:       p.Pos.Y,
			MapID:   p.Pos.MapID,
			Heading: int16(p.Pos.Heading),
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	if err := s.chars.SaveAllPositions(ctx, rows); err != nil {
		s.log.Error("定期位置儲存失敗", zap.Error(err))
		return
	}
	s.log.Debug(fmt.Sprintf("定期位置儲存完成  數量=%d", len(rows)))
}
