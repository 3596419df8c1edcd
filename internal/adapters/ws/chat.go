package ws

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

const maxChatMessageLength = 4000

func (ctl *Controller) handleChatSend(sess core.ClientSession, conn *wsConn, data []byte) {
	type chatPayload struct {
		Type        string `json:"type"`
		InterviewID string `json:"interviewId"`
		Message     string `json:"message"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.InterviewID == "" || p.Message == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad chat payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if len(p.Message) > maxChatMessageLength {
		ctl.sendError(conn, "message_too_long")
		return
	}

	event := struct {
		Type        string        `json:"type"`
		InterviewID string        `json:"interviewId"`
		Message     string        `json:"message"`
		UserID      domain.UserID `json:"userId"`
		Role        domain.Role   `json:"role"`
		Timestamp   time.Time     `json:"timestamp"`
	}{
		Type:        app.EventChatNewMessage,
		InterviewID: p.InterviewID,
		Message:     p.Message,
		UserID:      sess.Identity().UserID,
		Role:        sess.Identity().Role,
		Timestamp:   time.Now().UTC(),
	}
	// Chat reaches the whole room, sender included.
	ctl.broadcast(domain.InterviewRoom(p.InterviewID), event, core.ConnectionID(""))
}
