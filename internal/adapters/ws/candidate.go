package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

// Candidate pipeline status changes fan out to everyone who screens
// candidates, not to a single interview room.
func (ctl *Controller) handleCandidateStatus(sess core.ClientSession, conn *wsConn, data []byte) {
	type statusPayload struct {
		Type        string `json:"type"`
		CandidateID string `json:"candidateId"`
		Status      string `json:"status"`
	}
	var p statusPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CandidateID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad candidate status payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	event := struct {
		Type        string        `json:"type"`
		CandidateID string        `json:"candidateId"`
		Status      string        `json:"status"`
		UpdatedBy   domain.UserID `json:"updatedBy"`
	}{
		Type:        app.EventCandidateStatusUpdated,
		CandidateID: p.CandidateID,
		Status:      p.Status,
		UpdatedBy:   sess.Identity().UserID,
	}
	ctl.broadcast(domain.RoleRoom(domain.RoleRecruiter), event, "")
	ctl.broadcast(domain.RoleRoom(domain.RoleAdmin), event, "")
}
