package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

const mirrorTimeout = 5 * time.Second

// PresenceMirror publishes presence transitions for the rest of the
// platform to read. Best-effort: failures are logged, never surfaced to
// the live path. A nil mirror disables publishing.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID domain.UserID, role domain.Role) error
	SetOffline(ctx context.Context, userID domain.UserID) error
}

// Hub wires the registries together and owns connection lifecycle.
// Explicit leave handlers and the disconnect path share the same
// primitives so cleanup never diverges.
type Hub struct {
	Conns    *ConnectionRegistry
	Rooms    *RoomRegistry
	Relay    *SignalingRelay
	Notifier *PresenceNotifier
	Docs     *DocumentHub
	Notes    *NoteEditCoordinator
	Mirror   PresenceMirror

	mu    sync.Mutex
	onces map[core.ConnectionID]*sync.Once
}

// HubDeps carries the constructed registries into the hub.
type HubDeps struct {
	Conns    *ConnectionRegistry
	Rooms    *RoomRegistry
	Relay    *SignalingRelay
	Notifier *PresenceNotifier
	Docs     *DocumentHub
	Notes    *NoteEditCoordinator
	Mirror   PresenceMirror
}

func NewHub(deps HubDeps) *Hub {
	return &Hub{
		Conns:    deps.Conns,
		Rooms:    deps.Rooms,
		Relay:    deps.Relay,
		Notifier: deps.Notifier,
		Docs:     deps.Docs,
		Notes:    deps.Notes,
		Mirror:   deps.Mirror,
		onces:    make(map[core.ConnectionID]*sync.Once),
	}
}

// Register admits an already-authenticated connection: it enters the
// connection registry and auto-joins its user: and role: rooms.
func (h *Hub) Register(identity domain.Identity, conn core.SignalConnection) core.ClientSession {
	id := core.ConnectionID(uuid.NewString())
	sess := core.NewClientSession(id, identity, conn)

	first := h.Conns.Register(sess)
	h.Rooms.Join(domain.UserRoom(identity.UserID), sess)
	h.Rooms.Join(domain.RoleRoom(identity.Role), sess)

	h.mu.Lock()
	h.onces[id] = &sync.Once{}
	h.mu.Unlock()

	if first && h.Mirror != nil {
		go h.mirrorOnline(identity)
	}
	return sess
}

// OnDisconnect tears the connection down exactly once regardless of how
// many paths observe the close.
func (h *Hub) OnDisconnect(id core.ConnectionID) {
	h.mu.Lock()
	once, ok := h.onces[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	once.Do(func() { h.teardown(id) })
}

func (h *Hub) teardown(id core.ConnectionID) {
	sess, hasSession := h.Conns.Get(id)

	for _, roomID := range h.Rooms.RoomsOf(id) {
		remaining := h.leaveRoom(roomID, id, sess)
		if roomID.Kind() == domain.RoomKindNote && remaining == 0 {
			h.Notes.Cancel(roomID.Suffix())
		}
	}
	for _, documentID := range h.Docs.Subscribed(id) {
		h.Docs.Leave(documentID, id)
	}
	_, last, _ := h.Conns.Unregister(id)

	h.mu.Lock()
	delete(h.onces, id)
	h.mu.Unlock()

	if hasSession {
		identity := sess.Identity()
		log.Info().Str("module", "app.hub").Str("conn", string(id)).Str("user", string(identity.UserID)).Msg("connection torn down")
		if last && h.Mirror != nil {
			go h.mirrorOffline(identity.UserID)
		}
	}
}

// LeaveRoom is the explicit-leave entry point; it shares the disconnect
// primitive so both paths clean up identically.
func (h *Hub) LeaveRoom(roomID domain.RoomID, sess core.ClientSession) {
	remaining := h.leaveRoom(roomID, sess.ID(), sess)
	if roomID.Kind() == domain.RoomKindNote && remaining == 0 {
		h.Notes.Cancel(roomID.Suffix())
	}
}

type userLeftEvent struct {
	Type         string            `json:"type"`
	RoomID       string            `json:"roomId"`
	UserID       domain.UserID     `json:"userId"`
	ConnectionID core.ConnectionID `json:"connectionId"`
}

func (h *Hub) leaveRoom(roomID domain.RoomID, id core.ConnectionID, sess core.ClientSession) int {
	remaining, wasMember := h.Rooms.Leave(roomID, id)
	if !wasMember || remaining == 0 || sess == nil {
		return remaining
	}
	eventType := ""
	switch roomID.Kind() {
	case domain.RoomKindInterview:
		eventType = EventInterviewUserLeft
	case domain.RoomKindWebRTC:
		eventType = EventWebRTCUserLeft
	case domain.RoomKindNote:
		eventType = EventNoteUserLeft
	default:
		return remaining // user:/role: rooms are plumbing, peers are not told
	}
	frame := encodeJSON(userLeftEvent{
		Type:         eventType,
		RoomID:       roomID.Suffix(),
		UserID:       sess.Identity().UserID,
		ConnectionID: id,
	})
	if frame != nil {
		h.Rooms.Broadcast(roomID, frame, id)
	}
	return remaining
}

func (h *Hub) mirrorOnline(identity domain.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := h.Mirror.SetOnline(ctx, identity.UserID, identity.Role); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("user", string(identity.UserID)).Msg("presence mirror online failed")
	}
}

func (h *Hub) mirrorOffline(userID domain.UserID) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := h.Mirror.SetOffline(ctx, userID); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("user", string(userID)).Msg("presence mirror offline failed")
	}
}
