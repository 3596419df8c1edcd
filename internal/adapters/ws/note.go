package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
	"github.com/hireloop/collab/internal/store"
)

type noteRef struct {
	Type   string `json:"type"`
	NoteID string `json:"noteId"`
}

// handleNoteJoin puts the connection in the note room and replies with
// the current durable state so the client can render before any CRDT
// stream is up. The live merged text wins over the persisted one when
// the document is already materialized.
func (ctl *Controller) handleNoteJoin(ctx context.Context, sess core.ClientSession, conn *wsConn, data []byte) {
	var p noteRef
	if err := json.Unmarshal(data, &p); err != nil || p.NoteID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad note join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	roomID := domain.NoteRoom(p.NoteID)
	ctl.Hub.Rooms.Join(roomID, sess)

	content, title, lastUpdated := "", "", time.Time{}
	note, err := ctl.Hub.Notes.ReadNote(ctx, p.NoteID)
	switch {
	case err == nil:
		content, title, lastUpdated = note.Content, note.Title, note.UpdatedAt
	case errors.Is(err, store.ErrNoteNotFound):
		// New note: empty state is the current state.
	default:
		log.Error().Err(err).Str("module", "ws").Str("note", p.NoteID).Msg("note read failed")
	}
	if live, ok := ctl.Hub.Docs.Content(p.NoteID); ok {
		content = live
	}

	reply := struct {
		Type        string           `json:"type"`
		NoteID      string           `json:"noteId"`
		Content     string           `json:"content"`
		Title       string           `json:"title"`
		LastUpdated time.Time        `json:"lastUpdated"`
		Editors     []core.MemberDTO `json:"editors"`
	}{
		Type:        app.EventNoteCurrent,
		NoteID:      p.NoteID,
		Content:     content,
		Title:       title,
		LastUpdated: lastUpdated,
		Editors:     ctl.Hub.Rooms.MembersOf(roomID),
	}
	ctl.sendJSON(conn, reply)

	event := struct {
		Type         string            `json:"type"`
		NoteID       string            `json:"noteId"`
		UserID       domain.UserID     `json:"userId"`
		ConnectionID core.ConnectionID `json:"connectionId"`
	}{
		Type:         app.EventNoteUserJoined,
		NoteID:       p.NoteID,
		UserID:       sess.Identity().UserID,
		ConnectionID: sess.ID(),
	}
	ctl.broadcast(roomID, event, sess.ID())
}

func (ctl *Controller) handleNoteLeave(sess core.ClientSession, conn *wsConn, data []byte) {
	var p noteRef
	if err := json.Unmarshal(data, &p); err != nil || p.NoteID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad note leave payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Hub.LeaveRoom(domain.NoteRoom(p.NoteID), sess)
}

type notePayload struct {
	Type    string `json:"type"`
	NoteID  string `json:"noteId"`
	Content string `json:"content"`
	Title   string `json:"title"`
}

// handleNoteUpdate broadcasts the keystroke-level change and arms the
// autosave debounce; nothing is persisted here.
func (ctl *Controller) handleNoteUpdate(sess core.ClientSession, conn *wsConn, data []byte) {
	var p notePayload
	if err := json.Unmarshal(data, &p); err != nil || p.NoteID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad note update payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	event := struct {
		Type    string        `json:"type"`
		NoteID  string        `json:"noteId"`
		Content string        `json:"content"`
		Title   string        `json:"title"`
		UserID  domain.UserID `json:"userId"`
	}{
		Type:    app.EventNoteContentUpdate,
		NoteID:  p.NoteID,
		Content: p.Content,
		Title:   p.Title,
		UserID:  sess.Identity().UserID,
	}
	ctl.broadcast(domain.NoteRoom(p.NoteID), event, sess.ID())
	ctl.Hub.Notes.DebouncedAutosave(p.NoteID, p.Content, p.Title, sess.Identity().UserID)
}

// handleNoteSave is the explicit durability boundary. A persistence
// failure is reported to the requester only; live state is untouched so
// the client can retry.
func (ctl *Controller) handleNoteSave(ctx context.Context, sess core.ClientSession, conn *wsConn, data []byte) {
	var p notePayload
	if err := json.Unmarshal(data, &p); err != nil || p.NoteID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad note save payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if _, err := ctl.Hub.Notes.ExplicitSave(ctx, p.NoteID, p.Content, p.Title, sess.Identity().UserID); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("note", p.NoteID).Msg("explicit save failed")
		ctl.sendError(conn, "save_failed")
	}
}

func (ctl *Controller) handleNoteCursor(sess core.ClientSession, conn *wsConn, data []byte) {
	type cursorPayload struct {
		Type     string          `json:"type"`
		NoteID   string          `json:"noteId"`
		Position json.RawMessage `json:"position"`
	}
	var p cursorPayload
	if err := json.Unmarshal(data, &p); err != nil || p.NoteID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad cursor payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	event := struct {
		Type         string            `json:"type"`
		NoteID       string            `json:"noteId"`
		UserID       domain.UserID     `json:"userId"`
		ConnectionID core.ConnectionID `json:"connectionId"`
		Position     json.RawMessage   `json:"position"`
	}{
		Type:         app.EventNoteCursorUpdate,
		NoteID:       p.NoteID,
		UserID:       sess.Identity().UserID,
		ConnectionID: sess.ID(),
		Position:     p.Position,
	}
	ctl.broadcast(domain.NoteRoom(p.NoteID), event, sess.ID())
}
