package game

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/sim"
)

// SpawnAll places every configured spawn entry into the engine, scattering
// each copy inside the entry's random box. Entries naming an unknown
// template are logged and skipped; one bad line must not empty the world.
// Returns how many entities were placed.
func SpawnAll(eng *sim.Engine, templates *data.TemplateTable, spawns []data.SpawnEntry, log *zap.Logger) int {
	total := 0
	for _, sp := range spawns {
		if templates.Get(sp.TemplateID) == nil {
			log.Warn(fmt.Sprintf("生成: 未知的範本編號  id=%d", sp.TemplateID))
			continue
		}

		count := sp.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			x, y := sp.X, sp.Y
			if sp.RandomX > 0 {
				x += rand.Int31n(sp.RandomX*2+1) - sp.RandomX
			}
			if sp.RandomY > 0 {
				y += rand.Int31n(sp.RandomY*2+1) - sp.RandomY
			}

			id, err := eng.Spawn(sp.TemplateID, x, y, sp.MapID)
			if err != nil {
				log.Warn(fmt.Sprintf("生成失敗  範本=%d", sp.TemplateID), zap.Error(err))
				continue
			}
			if sp.Heading >= 0 && sp.Heading <= 7 {
				if e := eng.Get(id); e != nil {
					e.Pos.Heading = byte(sp.Heading)
				}
			}
			total++
		}
	}
	return total
}
