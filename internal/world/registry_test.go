package world

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linworld/server/internal/spatial"
)

// recordingHandle is a test delivery handle that remembers every payload.
type recordingHandle struct {
	mu  sync.Mutex
	got [][]byte
}

func (h *recordingHandle) Deliver(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, payload)
}

func (h *recordingHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.got)
}

func testPlayer(charID int32, x, y int32, h Deliverer) Player {
	return Player{
		SessionID: uint64(charID),
		CharID:    charID,
		Name:      fmt.Sprintf("char%d", charID),
		Pos:       spatial.Position{X: x, Y: y, MapID: 4},
		Session:   h,
	}
}

func TestNearbyExcludesSelfAndFiltersRange(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	r.Add(testPlayer(1, 100, 100, nil))
	r.Add(testPlayer(2, 110, 110, nil))
	r.Add(testPlayer(3, 200, 200, nil)) // out of range

	got := r.Nearby(spatial.Position{X: 100, Y: 100, MapID: 4}, 1)
	require.Len(t, got, 1)
	require.Equal(t, int32(2), got[0].CharID)
}

func TestAddThenRemoveLeavesNoGhosts(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	r.Add(testPlayer(1, 100, 100, nil))
	center := spatial.Position{X: 100, Y: 100, MapID: 4}

	before := r.Nearby(center, 0)
	r.Add(testPlayer(2, 101, 101, nil))
	require.Len(t, r.Nearby(center, 0), len(before)+1)

	r.Remove(2)
	after := r.Nearby(center, 0)
	require.Equal(t, before, after)
	require.Equal(t, 1, r.Count())

	r.Remove(2) // absent, no-op
	require.Equal(t, 1, r.Count())
}

func TestReAddReplacesOldEntry(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	r.Add(testPlayer(1, 100, 100, nil))
	r.Add(testPlayer(1, 500, 500, nil))
	require.Equal(t, 1, r.Count())

	require.Empty(t, r.Nearby(spatial.Position{X: 101, Y: 101, MapID: 4}, 0))
	require.Len(t, r.Nearby(spatial.Position{X: 501, Y: 501, MapID: 4}, 0), 1)
}

func TestUpdatePosition(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	r.Add(testPlayer(1, 100, 100, nil))

	require.True(t, r.UpdatePosition(1, spatial.Position{X: 300, Y: 300, MapID: 4, Heading: 6}))
	require.Empty(t, r.Nearby(spatial.Position{X: 100, Y: 100, MapID: 4}, 0))

	got := r.Nearby(spatial.Position{X: 299, Y: 299, MapID: 4}, 0)
	require.Len(t, got, 1)
	require.Equal(t, byte(6), got[0].Pos.Heading)

	require.False(t, r.UpdatePosition(99, spatial.Position{X: 1, Y: 1, MapID: 4}))
}

func TestBroadcastNeverDeliversToExcluded(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	self := &recordingHandle{}
	near := &recordingHandle{}
	far := &recordingHandle{}
	r.Add(testPlayer(1, 100, 100, self))
	r.Add(testPlayer(2, 105, 105, near))
	r.Add(testPlayer(3, 400, 400, far))

	payload := []byte{0x51, 0x01}
	for i := 0; i < 5; i++ {
		r.Broadcast(spatial.Position{X: 100, Y: 100, MapID: 4}, 1, payload)
	}

	require.Equal(t, 0, self.count())
	require.Equal(t, 5, near.count())
	require.Equal(t, 0, far.count())
}

func TestBroadcastAllIgnoresDistance(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	self := &recordingHandle{}
	far := &recordingHandle{}
	r.Add(testPlayer(1, 100, 100, self))
	r.Add(testPlayer(2, 9000, 9000, far))

	r.BroadcastAll(1, []byte{0xF3})
	require.Equal(t, 0, self.count())
	require.Equal(t, 1, far.count())
}

func TestObserverPositions(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	r.Add(testPlayer(1, 10, 20, nil))
	r.Add(testPlayer(2, 30, 40, nil))

	got := r.ObserverPositions()
	require.Len(t, got, 2)
	seen := map[int32]bool{}
	for _, p := range got {
		seen[p.X] = true
	}
	require.True(t, seen[10])
	require.True(t, seen[30])
}

// Concurrent adds, moves, queries and broadcasts must not race or corrupt
// the index. Run with -race.
func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(20, zap.NewNop())
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			base := int32(g * 1000)
			h := &recordingHandle{}
			for i := int32(0); i < 100; i++ {
				id := base + i%10
				r.Add(testPlayer(id, 100+i, 100, h))
				r.UpdatePosition(id, spatial.Position{X: 100 + i, Y: 101, MapID: 4})
				r.Nearby(spatial.Position{X: 100, Y: 100, MapID: 4}, id)
				r.Broadcast(spatial.Position{X: 100, Y: 100, MapID: 4}, id, []byte{1})
				if i%3 == 0 {
					r.Remove(id)
				}
			}
		}(g)
	}
	wg.Wait()
	require.GreaterOrEqual(t, r.Count(), 0)
}
