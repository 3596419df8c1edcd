package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

// RoomRegistry is the generic many-to-many channel membership. Rooms
// are created lazily on first join and destroyed on last leave; a
// connection may sit in arbitrarily many rooms.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[domain.RoomID]*core.Room)}
}

// Join is idempotent.
func (r *RoomRegistry) Join(roomID domain.RoomID, sess core.ClientSession) {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		if room, ok = r.rooms[roomID]; !ok {
			room = core.NewRoom(roomID)
			r.rooms[roomID] = room
			log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room created")
		}
		r.mu.Unlock()
	}
	room.Add(sess)
}

// Leave removes the membership and deletes the room once empty. It
// returns the surviving member count and whether the connection was a
// member at all.
func (r *RoomRegistry) Leave(roomID domain.RoomID, id core.ConnectionID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}
	wasMember := room.Remove(id)
	remaining := room.MemberCount()
	if remaining == 0 {
		delete(r.rooms, roomID)
		log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room destroyed")
	}
	return remaining, wasMember
}

func (r *RoomRegistry) Get(roomID domain.RoomID) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// MembersOf returns a membership snapshot, empty for absent rooms.
func (r *RoomRegistry) MembersOf(roomID domain.RoomID) []core.MemberDTO {
	room, ok := r.Get(roomID)
	if !ok {
		return nil
	}
	return room.MembersSnapshot()
}

// Broadcast delivers to every member present at call time except the
// excluded sender. Absent rooms are a no-op.
func (r *RoomRegistry) Broadcast(roomID domain.RoomID, data core.Frame, excluding core.ConnectionID) core.PublishResult {
	room, ok := r.Get(roomID)
	if !ok {
		return core.PublishResult{}
	}
	return room.Broadcast(data, excluding)
}

// RoomsOf lists every room the connection currently belongs to.
func (r *RoomRegistry) RoomsOf(id core.ConnectionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RoomID
	for roomID, room := range r.rooms {
		if room.Contains(id) {
			out = append(out, roomID)
		}
	}
	return out
}

// Count reports how many rooms currently exist.
func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
