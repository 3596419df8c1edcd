package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
)

// Server-emitted event names for the persistent connection protocol.
// The client-to-server catalogue lives with the websocket handlers.
const (
	EventCandidateStatusUpdated = "candidate:statusUpdated"
	EventInterviewUserJoined    = "interview:userJoined"
	EventInterviewUserLeft      = "interview:userLeft"
	EventInterviewCodeUpdated   = "interview:codeUpdated"
	EventInterviewCodeSaved     = "interview:codeSaved"
	EventChatNewMessage         = "chat:newMessage"
	EventWebRTCUsersInRoom      = "webrtc:usersInRoom"
	EventWebRTCUserJoined       = "webrtc:userJoined"
	EventWebRTCUserLeft         = "webrtc:userLeft"
	EventWebRTCScreenShare      = "webrtc:screenShare"
	EventNoteCurrent            = "note:current"
	EventNoteUserJoined         = "note:userJoined"
	EventNoteUserLeft           = "note:userLeft"
	EventNoteContentUpdate      = "note:contentUpdate"
	EventNoteSaved              = "note:saved"
	EventNoteCursorUpdate       = "note:cursorUpdate"
	EventNotificationNew        = "notification:new"
	EventError                  = "error"
)

// encodeJSON marshals an outbound event struct into a wire frame. A
// marshal failure returns nil, which TrySend callers treat as a drop.
func encodeJSON(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("event marshal")
		return nil
	}
	return b
}
