package world

import (
	"sync"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/spatial"
)

// Registry tracks every in-world player connection. It is the only
// structure mutated by multiple connection goroutines, so all five
// operations share one critical section: a nearby query can never observe
// a half-updated position. Anything that does I/O (packet delivery)
// copies what it needs out of the section first and sends after release.
type Registry struct {
	mu         sync.Mutex
	players    map[int32]*Player // CharID → player
	grid       *spatial.Grid
	visibility int32
	log        *zap.Logger
}

func NewRegistry(visibility int32, log *zap.Logger) *Registry {
	return &Registry{
		players:    make(map[int32]*Player),
		grid:       spatial.NewGrid(visibility),
		visibility: visibility,
		log:        log,
	}
}

// VisibilityRange returns the configured visibility range in tiles.
func (r *Registry) VisibilityRange() int32 {
	return r.visibility
}

// Add registers a player. Re-adding the same CharID replaces the old
// entry and its spatial index cell, so a stale registration can never
// shadow a fresh one.
func (r *Registry) Add(p Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.players[p.CharID]; ok {
		r.grid.Remove(old.CharID, old.Pos)
	}
	stored := p
	r.players[p.CharID] = &stored
	r.grid.Add(p.CharID, p.Pos)
}

// Remove deregisters a player. No-op if absent.
func (r *Registry) Remove(charID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[charID]
	if !ok {
		return
	}
	r.grid.Remove(charID, p.Pos)
	delete(r.players, charID)
}

// UpdatePosition moves a player to a new position, updating the spatial
// index. Reports whether the player was present.
func (r *Registry) UpdatePosition(charID int32, to spatial.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[charID]
	if !ok {
		return false
	}
	r.grid.Move(charID, p.Pos, to)
	p.Pos = to
	return true
}

// Nearby returns value copies of every player on pos's map within the
// visibility range, excluding excludeID. Copies are safe to use after
// the critical section ends.
func (r *Registry) Nearby(pos spatial.Position, excludeID int32) []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nearbyLocked(pos, excludeID)
}

func (r *Registry) nearbyLocked(pos spatial.Position, excludeID int32) []Player {
	var out []Player
	for _, id := range r.grid.Nearby(pos) {
		if id == excludeID {
			continue
		}
		p, ok := r.players[id]
		if !ok {
			continue
		}
		if spatial.InRange(pos, p.Pos, r.visibility) {
			out = append(out, *p)
		}
	}
	return out
}

// Broadcast delivers payload to every player near pos except excludeID.
// Delivery handles are copied under the lock and invoked after release,
// so one slow socket never serializes every other send.
func (r *Registry) Broadcast(pos spatial.Position, excludeID int32, payload []byte) {
	r.mu.Lock()
	targets := r.nearbyLocked(pos, excludeID)
	r.mu.Unlock()

	for i := range targets {
		if targets[i].Session != nil {
			targets[i].Session.Deliver(payload)
		}
	}
}

// BroadcastAll delivers payload to every registered player except
// excludeID, regardless of distance. Used for server-wide chat.
func (r *Registry) BroadcastAll(excludeID int32, payload []byte) {
	r.mu.Lock()
	handles := make([]Deliverer, 0, len(r.players))
	for id, p := range r.players {
		if id == excludeID || p.Session == nil {
			continue
		}
		handles = append(handles, p.Session)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.Deliver(payload)
	}
}

// All returns value copies of every registered player, for periodic
// position saves and shutdown sweeps.
func (r *Registry) All() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	return out
}

// ObserverPositions snapshots every player's position for the tick
// engine's observation input.
func (r *Registry) ObserverPositions() []spatial.Position {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]spatial.Position, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.Pos)
	}
	return out
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
