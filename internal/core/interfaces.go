package core

import "github.com/hireloop/collab/internal/domain"

// Frame is a raw payload already encoded for the wire.
type Frame []byte

// ConnectionID identifies one live transport, not a user: the same
// user may hold several connections at once.
type ConnectionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ClientSession binds a verified identity and its transport endpoint.
// This is what rooms store and fan out to.
type ClientSession interface {
	ID() ConnectionID
	Identity() domain.Identity
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []ClientSession
}

// MemberDTO is a read-only membership view for replies (no transport fields).
type MemberDTO struct {
	ConnectionID ConnectionID  `json:"connectionId"`
	UserID       domain.UserID `json:"userId"`
	Role         domain.Role   `json:"role"`
}
