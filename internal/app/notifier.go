package app

import (
	"time"

	"github.com/hireloop/collab/internal/domain"
)

// Notification is a server-initiated message pushed over the live
// protocol; it is never persisted here.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type notificationEvent struct {
	Type string `json:"type"`
	Notification
}

// PresenceNotifier delivers notifications to one user's connections, a
// whole role, or everyone online. Delivery rides the user:/role: rooms
// the registry auto-joins at registration.
type PresenceNotifier struct {
	conns *ConnectionRegistry
	rooms *RoomRegistry
	clock func() time.Time
}

func NewPresenceNotifier(conns *ConnectionRegistry, rooms *RoomRegistry) *PresenceNotifier {
	return &PresenceNotifier{conns: conns, rooms: rooms, clock: time.Now}
}

func (n *PresenceNotifier) frame(notification Notification) []byte {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = n.clock().UTC()
	}
	return encodeJSON(notificationEvent{Type: EventNotificationNew, Notification: notification})
}

func (n *PresenceNotifier) NotifyUser(userID domain.UserID, notification Notification) {
	frame := n.frame(notification)
	if frame == nil {
		return
	}
	n.rooms.Broadcast(domain.UserRoom(userID), frame, "")
}

func (n *PresenceNotifier) NotifyRole(role domain.Role, notification Notification) {
	frame := n.frame(notification)
	if frame == nil {
		return
	}
	n.rooms.Broadcast(domain.RoleRoom(role), frame, "")
}

func (n *PresenceNotifier) NotifyAll(notification Notification) {
	frame := n.frame(notification)
	if frame == nil {
		return
	}
	for _, sess := range n.conns.Sessions() {
		_ = sess.Signal().TrySend(frame)
	}
}
