package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/spatial"
)

func testTemplates() *data.TemplateTable {
	return data.NewTemplateTable([]data.EntityTemplate{
		{ID: 45001, Name: "狼", Impl: "L1Monster", GfxID: 2168, Level: 4, HP: 28, AC: 9, MoveDelay: 1},
		{ID: 45008, Name: "妖魔", Impl: "L1Monster", GfxID: 2181, Level: 6, HP: 44, MR: 10, MoveDelay: 3},
		{ID: 70015, Name: "商店老闆", Impl: "L1Merchant", GfxID: 750, Level: 50, HP: 500},
	})
}

func newTestEngine() *Engine {
	return NewEngine(testTemplates(), 20, zap.NewNop())
}

func TestSpawnUnknownTemplate(t *testing.T) {
	e := newTestEngine()
	_, err := e.Spawn(99999, 100, 100, 0)
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.Equal(t, 0, e.Count())
	require.Empty(t, e.NearbyEntities(spatial.Position{X: 100, Y: 100}, 20))
}

func TestSpawnClonesTemplateStats(t *testing.T) {
	e := newTestEngine()
	id, err := e.Spawn(45008, 200, 300, 4)
	require.NoError(t, err)

	ent := e.Get(id)
	require.NotNil(t, ent)
	require.Equal(t, "妖魔", ent.Name)
	require.Equal(t, int32(44), ent.HP)
	require.Equal(t, int32(44), ent.MaxHP)
	require.Equal(t, int16(10), ent.MR)
	require.True(t, ent.Alive)
	require.Equal(t, spatial.Position{X: 200, Y: 300, MapID: 4}, ent.Pos)
	require.Equal(t, ent.Pos, ent.Home)

	// Ids come from the simulated-entity space, far above player objids.
	require.GreaterOrEqual(t, id, int32(0x10000000))
}

func TestRemoveIsIdempotent(t *testing.T) {
	e := newTestEngine()
	id, err := e.Spawn(45001, 50, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, e.Count())

	e.Remove(id)
	require.Equal(t, 0, e.Count())
	require.Empty(t, e.NearbyEntities(spatial.Position{X: 50, Y: 50}, 20))

	e.Remove(id)       // already gone
	e.Remove(12345678) // never existed
	require.Equal(t, 0, e.Count())
}

func TestTickWithoutObserversMovesNothing(t *testing.T) {
	e := newTestEngine()
	var spawned []int32
	for i := 0; i < 20; i++ {
		id, err := e.Spawn(45001, int32(100+i), 100, 0)
		require.NoError(t, err)
		spawned = append(spawned, id)
	}
	before := make(map[int32]spatial.Position)
	for _, id := range spawned {
		before[id] = e.Get(id).Pos
	}

	for i := 0; i < 10; i++ {
		require.Empty(t, e.Tick(nil, 20))
	}
	for _, id := range spawned {
		require.Equal(t, before[id], e.Get(id).Pos)
	}
	require.Equal(t, uint64(10), e.TickCount())
}

func TestTickMovesOneTilePerStep(t *testing.T) {
	e := newTestEngine()
	_, err := e.Spawn(45001, 1000, 1000, 0)
	require.NoError(t, err)

	observer := []spatial.Position{{X: 1000, Y: 1000, MapID: 0}}
	total := 0
	for i := 0; i < 50; i++ {
		for _, mv := range e.Tick(observer, 20) {
			total++
			dx := mv.To.X - mv.From.X
			dy := mv.To.Y - mv.From.Y
			require.True(t, dx >= -1 && dx <= 1, "dx=%d", dx)
			require.True(t, dy >= -1 && dy <= 1, "dy=%d", dy)
			require.False(t, dx == 0 && dy == 0, "movement must change position")

			// The reported heading agrees with the step taken.
			h := mv.To.Heading
			require.Equal(t, spatial.HeadingDX[h], dx)
			require.Equal(t, spatial.HeadingDY[h], dy)

			// The engine's own record matches what it reported.
			require.Equal(t, mv.To, e.Get(mv.ID).Pos)
		}
	}
	require.Greater(t, total, 0)
}

func TestMerchantsStandStill(t *testing.T) {
	e := newTestEngine()
	id, err := e.Spawn(70015, 500, 500, 0)
	require.NoError(t, err)

	observer := []spatial.Position{{X: 500, Y: 500, MapID: 0}}
	for i := 0; i < 20; i++ {
		require.Empty(t, e.Tick(observer, 20))
	}
	require.Equal(t, spatial.Position{X: 500, Y: 500}, e.Get(id).Pos)
}

// An entity that loses its observer mid-cooldown must resume the countdown
// where it stopped, not restart or keep draining while unobserved.
func TestDormancyFreezesCooldown(t *testing.T) {
	e := newTestEngine()
	id, err := e.Spawn(45008, 700, 700, 0) // move delay 3
	require.NoError(t, err)

	near := []spatial.Position{{X: 700, Y: 700, MapID: 0}}

	// First observed tick: cooldown starts at zero, so the entity steps
	// and the cooldown resets to 3.
	require.Len(t, e.Tick(near, 20), 1)

	// One more observed tick burns one cooldown unit (3 → 2).
	require.Empty(t, e.Tick(near, 20))

	// Unobserved ticks must not touch the frozen countdown.
	for i := 0; i < 5; i++ {
		require.Empty(t, e.Tick(nil, 20))
	}

	// Re-observed: 2 → 1 (no move), then 1 → 0 and it steps again.
	require.Empty(t, e.Tick(near, 20))
	require.Len(t, e.Tick(near, 20), 1)
	_ = id
}

func TestApplyDamage(t *testing.T) {
	e := newTestEngine()
	id, err := e.Spawn(45001, 10, 10, 0) // 28 hp
	require.NoError(t, err)

	hp, dead := e.ApplyDamage(id, 10)
	require.Equal(t, int32(18), hp)
	require.False(t, dead)

	hp, dead = e.ApplyDamage(id, 50)
	require.Equal(t, int32(0), hp)
	require.True(t, dead)

	// Dead entities absorb nothing and never die twice.
	hp, dead = e.ApplyDamage(id, 5)
	require.Equal(t, int32(0), hp)
	require.False(t, dead)

	// Absent target.
	hp, dead = e.ApplyDamage(424242, 5)
	require.Equal(t, int32(0), hp)
	require.False(t, dead)
}

func TestDeadEntitiesDoNotRoam(t *testing.T) {
	e := newTestEngine()
	id, err := e.Spawn(45001, 10, 10, 0)
	require.NoError(t, err)
	_, dead := e.ApplyDamage(id, 1000)
	require.True(t, dead)

	observer := []spatial.Position{{X: 10, Y: 10, MapID: 0}}
	for i := 0; i < 10; i++ {
		require.Empty(t, e.Tick(observer, 20))
	}
}

// Sleep optimization at scale: with ten thousand roamers spread around a
// single observer, ten ticks must produce some movement but nowhere near
// the 100k ceiling of everyone moving every tick.
func TestScaleTenThousandEntities(t *testing.T) {
	e := newTestEngine()
	for i := int32(0); i < 10000; i++ {
		_, err := e.Spawn(45001, 1000+i%100, 1000+i/100, 0)
		require.NoError(t, err)
	}
	require.Equal(t, 10000, e.Count())

	observer := []spatial.Position{{X: 1050, Y: 1050, MapID: 0}}
	total := 0
	for i := 0; i < 10; i++ {
		total += len(e.Tick(observer, 20))
	}
	require.Greater(t, total, 0)
	require.Less(t, total, 100000)
}

func TestNearbyEntitiesFiltersByRangeAndMap(t *testing.T) {
	e := newTestEngine()
	a, _ := e.Spawn(45001, 100, 100, 0)
	b, _ := e.Spawn(45001, 110, 110, 0)
	c, _ := e.Spawn(45001, 100, 100, 7) // other map
	far, _ := e.Spawn(45001, 400, 400, 0)

	got := e.NearbyEntities(spatial.Position{X: 102, Y: 102, MapID: 0}, 20)
	ids := make(map[int32]bool)
	for _, ent := range got {
		ids[ent.ID] = true
	}
	require.True(t, ids[a])
	require.True(t, ids[b])
	require.False(t, ids[c])
	require.False(t, ids[far])
}
