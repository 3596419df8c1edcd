// Package app owns the live collaboration state: who is connected,
// which rooms exist, and how frames fan out. All registries are
// explicitly constructed instances so tests can run them in isolation.
package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

// ConnectionRegistry tracks live connections per user. A user is online
// while at least one connection remains; the per-user set never holds a
// key with an empty set.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	sessions map[core.ConnectionID]core.ClientSession
	byUser   map[domain.UserID]map[core.ConnectionID]struct{}
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions: make(map[core.ConnectionID]core.ClientSession),
		byUser:   make(map[domain.UserID]map[core.ConnectionID]struct{}),
	}
}

// Register adds the session and reports whether it is the user's first
// live connection.
func (r *ConnectionRegistry) Register(sess core.ClientSession) bool {
	userID := sess.Identity().UserID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID()] = sess
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[core.ConnectionID]struct{})
		r.byUser[userID] = set
	}
	set[sess.ID()] = struct{}{}
	log.Info().Str("module", "app.registry").Str("conn", string(sess.ID())).Str("user", string(userID)).Msg("registered connection")
	return len(set) == 1
}

// Unregister removes the connection and reports whether it was the
// user's last one. The user entry is deleted once its set empties so
// IsOnline reflects true liveness.
func (r *ConnectionRegistry) Unregister(id core.ConnectionID) (core.ClientSession, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, false, false
	}
	delete(r.sessions, id)
	userID := sess.Identity().UserID
	last := false
	if set, ok := r.byUser[userID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byUser, userID)
			last = true
		}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("user", string(userID)).Bool("last", last).Msg("unregistered connection")
	return sess, last, true
}

func (r *ConnectionRegistry) Get(id core.ConnectionID) (core.ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *ConnectionRegistry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// CountOnline reports how many distinct users hold a live connection.
func (r *ConnectionRegistry) CountOnline() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Sessions returns a snapshot of every live session.
func (r *ConnectionRegistry) Sessions() []core.ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ClientSession, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}
