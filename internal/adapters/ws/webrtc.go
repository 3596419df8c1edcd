package ws

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

type rtcRoomRef struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

func (ctl *Controller) handleWebRTCJoin(sess core.ClientSession, conn *wsConn, data []byte) {
	var p rtcRoomRef
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad webrtc join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	roomID := domain.WebRTCRoom(p.RoomID)

	// Snapshot before joining so the joiner gets its peers, not itself.
	peers := ctl.Hub.Rooms.MembersOf(roomID)
	ctl.Hub.Rooms.Join(roomID, sess)
	log.Info().Str("module", "ws").Str("conn", string(sess.ID())).Str("room", p.RoomID).Int("peers", len(peers)).Msg("webrtc room joined")

	reply := struct {
		Type   string           `json:"type"`
		RoomID string           `json:"roomId"`
		Users  []core.MemberDTO `json:"users"`
	}{
		Type:   app.EventWebRTCUsersInRoom,
		RoomID: p.RoomID,
		Users:  peers,
	}
	ctl.sendJSON(conn, reply)

	event := struct {
		Type         string            `json:"type"`
		RoomID       string            `json:"roomId"`
		UserID       domain.UserID     `json:"userId"`
		ConnectionID core.ConnectionID `json:"connectionId"`
	}{
		Type:         app.EventWebRTCUserJoined,
		RoomID:       p.RoomID,
		UserID:       sess.Identity().UserID,
		ConnectionID: sess.ID(),
	}
	ctl.broadcast(roomID, event, sess.ID())
}

func (ctl *Controller) handleWebRTCLeave(sess core.ClientSession, conn *wsConn, data []byte) {
	var p rtcRoomRef
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad webrtc leave payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Hub.LeaveRoom(domain.WebRTCRoom(p.RoomID), sess)
}

type signalPayload struct {
	Type    string          `json:"type"`
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

// handleDescription relays an SDP offer or answer point-to-point. The
// payload must parse as a session description but is forwarded
// untouched; the relay never negotiates.
func (ctl *Controller) handleDescription(sess core.ClientSession, conn *wsConn, eventType string, data []byte) {
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad signaling payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	var sdp webrtc.SessionDescription
	if err := json.Unmarshal(p.Payload, &sdp); err != nil || sdp.SDP == "" {
		log.Warn().Err(err).Str("module", "ws").Str("event", eventType).Msg("payload is not a session description")
		ctl.sendError(conn, "bad_payload")
		return
	}

	kind := app.SignalOffer
	if eventType == "webrtc:answer" {
		kind = app.SignalAnswer
	}
	ctl.Hub.Relay.Relay(sess, core.ConnectionID(p.Target), kind, p.Payload)
}

func (ctl *Controller) handleICECandidate(sess core.ClientSession, conn *wsConn, data []byte) {
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad candidate payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(p.Payload, &candidate); err != nil || candidate.Candidate == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("payload is not an ice candidate")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Hub.Relay.Relay(sess, core.ConnectionID(p.Target), app.SignalICECandidate, p.Payload)
}

// Screen-share status is room scoped, not point-to-point: every peer
// must react, so it rides the room broadcast.
func (ctl *Controller) handleScreenShare(sess core.ClientSession, conn *wsConn, data []byte) {
	type screenSharePayload struct {
		Type      string `json:"type"`
		RoomID    string `json:"roomId"`
		IsSharing bool   `json:"isSharing"`
	}
	var p screenSharePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad screen share payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	event := struct {
		Type         string            `json:"type"`
		RoomID       string            `json:"roomId"`
		UserID       domain.UserID     `json:"userId"`
		ConnectionID core.ConnectionID `json:"connectionId"`
		IsSharing    bool              `json:"isSharing"`
	}{
		Type:         app.EventWebRTCScreenShare,
		RoomID:       p.RoomID,
		UserID:       sess.Identity().UserID,
		ConnectionID: sess.ID(),
		IsSharing:    p.IsSharing,
	}
	ctl.broadcast(domain.WebRTCRoom(p.RoomID), event, sess.ID())
}
