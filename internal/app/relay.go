package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

// Signaling payload kinds relayed point-to-point.
const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "iceCandidate"
)

// SignalingRelay forwards opaque WebRTC negotiation payloads between
// two live connections. No queuing, no error to the sender: an offline
// target is a silent drop.
type SignalingRelay struct {
	conns *ConnectionRegistry
}

func NewSignalingRelay(conns *ConnectionRegistry) *SignalingRelay {
	return &SignalingRelay{conns: conns}
}

type signalEvent struct {
	Type       string            `json:"type"`
	From       core.ConnectionID `json:"from"`
	FromUserID domain.UserID     `json:"fromUserId"`
	Payload    json.RawMessage   `json:"payload"`
}

// Relay resolves the target and forwards {kind, payload, from} without
// inspecting the payload.
func (r *SignalingRelay) Relay(from core.ClientSession, target core.ConnectionID, kind string, payload json.RawMessage) {
	sess, ok := r.conns.Get(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("target", string(target)).Str("kind", kind).Msg("target offline, dropping")
		return
	}
	frame := encodeJSON(signalEvent{
		Type:       "webrtc:" + kind,
		From:       from.ID(),
		FromUserID: from.Identity().UserID,
		Payload:    payload,
	})
	if frame == nil {
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Str("target", string(target)).Msg("relay dropped")
	}
}
