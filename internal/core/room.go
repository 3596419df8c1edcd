package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/domain"
)

// Room is a threadsafe in-memory membership set used for scoped
// broadcast. It never closes adapter-owned resources.
type Room struct {
	id      domain.RoomID
	mu      sync.RWMutex
	members map[ConnectionID]ClientSession
}

func NewRoom(id domain.RoomID) *Room {
	return &Room{
		id:      id,
		members: make(map[ConnectionID]ClientSession),
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Add is idempotent: re-joining does not change membership.
func (r *Room) Add(session ClientSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[session.ID()] = session
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(session.ID())).Msg("member added")
}

// Remove reports whether the connection was a member.
func (r *Room) Remove(id ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Msg("member removed")
	return true
}

func (r *Room) Contains(id ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// Broadcast fans out to every current member except the excluded
// connection. Pass an empty exclusion to reach the whole room.
func (r *Room) Broadcast(data Frame, excluding ConnectionID) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.members {
		if id == excluding {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *Room) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for id, m := range r.members {
		identity := m.Identity()
		out = append(out, MemberDTO{ConnectionID: id, UserID: identity.UserID, Role: identity.Role})
	}
	return out
}
