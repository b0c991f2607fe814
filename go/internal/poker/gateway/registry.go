package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RoomStore validates room existence against the persistence layer
type RoomStore interface {
	RoomExists(ctx context.Context, roomID string) (bool, error)
}

// Registry validates rooms and owns the arena of live broadcast groups,
// one singleton group per room id, created lazily on first reference.
type Registry struct {
	rooms RoomStore

	mu     sync.Mutex
	groups map[uuid.UUID]*Group
}

// NewRegistry creates a new room registry
func NewRegistry(rooms RoomStore) *Registry {
	return &Registry{
		rooms:  rooms,
		groups: make(map[uuid.UUID]*Group),
	}
}

// Exists reports whether roomID names a stored room. Malformed ids report
// false rather than an error.
func (r *Registry) Exists(ctx context.Context, roomID string) (bool, error) {
	return r.rooms.RoomExists(ctx, roomID)
}

// GroupFor returns the live group for a room, creating it on first reference
func (r *Registry) GroupFor(roomID uuid.UUID) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.groups[roomID]; ok {
		return g
	}
	g := newGroup(roomID)
	r.groups[roomID] = g

	log.Debug().Str("room_id", roomID.String()).Msg("room group created")
	return g
}

// PeekGroup returns the live group for a room without creating one
func (r *Registry) PeekGroup(roomID uuid.UUID) (*Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[roomID]
	return g, ok
}

// GroupCount returns the number of live groups
func (r *Registry) GroupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Sweep evicts groups whose membership reached zero and returns how many
// were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, g := range r.groups {
		if g.Members() == 0 && g.tryStop() {
			delete(r.groups, id)
			evicted++
		}
	}
	return evicted
}

// StartJanitor sweeps empty groups on every tick until ctx is cancelled,
// keeping the arena bounded across the process lifetime.
func (r *Registry) StartJanitor(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if n := r.Sweep(); n > 0 {
					log.Debug().Int("evicted", n).Msg("evicted empty room groups")
				}
			}
		}
	}()
}
