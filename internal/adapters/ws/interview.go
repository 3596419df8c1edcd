package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

type interviewRef struct {
	Type        string `json:"type"`
	InterviewID string `json:"interviewId"`
}

func (ctl *Controller) handleInterviewJoin(sess core.ClientSession, conn *wsConn, data []byte) {
	var p interviewRef
	if err := json.Unmarshal(data, &p); err != nil || p.InterviewID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad interview join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	roomID := domain.InterviewRoom(p.InterviewID)
	ctl.Hub.Rooms.Join(roomID, sess)
	log.Info().Str("module", "ws").Str("conn", string(sess.ID())).Str("interview", p.InterviewID).Msg("interview joined")

	event := struct {
		Type         string            `json:"type"`
		InterviewID  string            `json:"interviewId"`
		UserID       domain.UserID     `json:"userId"`
		Role         domain.Role       `json:"role"`
		ConnectionID core.ConnectionID `json:"connectionId"`
	}{
		Type:         app.EventInterviewUserJoined,
		InterviewID:  p.InterviewID,
		UserID:       sess.Identity().UserID,
		Role:         sess.Identity().Role,
		ConnectionID: sess.ID(),
	}
	// The joiner never hears about itself.
	ctl.broadcast(roomID, event, sess.ID())
}

func (ctl *Controller) handleInterviewLeave(sess core.ClientSession, conn *wsConn, data []byte) {
	var p interviewRef
	if err := json.Unmarshal(data, &p); err != nil || p.InterviewID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad interview leave payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Hub.LeaveRoom(domain.InterviewRoom(p.InterviewID), sess)
}

type codePayload struct {
	Type        string `json:"type"`
	InterviewID string `json:"interviewId"`
	Code        string `json:"code"`
	Language    string `json:"language"`
}

type codeEvent struct {
	Type        string        `json:"type"`
	InterviewID string        `json:"interviewId"`
	Code        string        `json:"code"`
	Language    string        `json:"language"`
	UserID      domain.UserID `json:"userId"`
}

func (ctl *Controller) handleInterviewCodeUpdate(sess core.ClientSession, conn *wsConn, data []byte) {
	var p codePayload
	if err := json.Unmarshal(data, &p); err != nil || p.InterviewID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad code update payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	event := codeEvent{
		Type:        app.EventInterviewCodeUpdated,
		InterviewID: p.InterviewID,
		Code:        p.Code,
		Language:    p.Language,
		UserID:      sess.Identity().UserID,
	}
	ctl.broadcast(domain.InterviewRoom(p.InterviewID), event, sess.ID())
}

func (ctl *Controller) handleInterviewCodeSave(sess core.ClientSession, conn *wsConn, data []byte) {
	var p codePayload
	if err := json.Unmarshal(data, &p); err != nil || p.InterviewID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad code save payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	event := codeEvent{
		Type:        app.EventInterviewCodeSaved,
		InterviewID: p.InterviewID,
		Code:        p.Code,
		Language:    p.Language,
		UserID:      sess.Identity().UserID,
	}
	// Saves echo back to the saver too, so every client converges on
	// the committed snapshot.
	ctl.broadcast(domain.InterviewRoom(p.InterviewID), event, "")
}
