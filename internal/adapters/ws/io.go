package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(c.msgType, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess core.ClientSession, c *wsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", string(sess.ID())).Msg("event connection closing")
		ctl.Hub.OnDisconnect(sess.ID())
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	readDeadline := ctl.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("conn", string(sess.ID())).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, sess, c, data)
		}
	}
}

// handleEvent dispatches one inbound frame. A panicking handler must
// not take the process or any other connection down with it.
func (ctl *Controller) handleEvent(ctx context.Context, sess core.ClientSession, c *wsConn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "ws").Str("conn", string(sess.ID())).Msg("handler panic recovered")
		}
	}()

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(c)
	case "candidate:statusUpdate":
		ctl.handleCandidateStatus(sess, c, data)
	case "interview:join":
		ctl.handleInterviewJoin(sess, c, data)
	case "interview:leave":
		ctl.handleInterviewLeave(sess, c, data)
	case "interview:codeUpdate":
		ctl.handleInterviewCodeUpdate(sess, c, data)
	case "interview:codeSave":
		ctl.handleInterviewCodeSave(sess, c, data)
	case "chat:sendMessage":
		ctl.handleChatSend(sess, c, data)
	case "webrtc:joinRoom":
		ctl.handleWebRTCJoin(sess, c, data)
	case "webrtc:leaveRoom":
		ctl.handleWebRTCLeave(sess, c, data)
	case "webrtc:offer", "webrtc:answer":
		ctl.handleDescription(sess, c, env.Type, data)
	case "webrtc:iceCandidate":
		ctl.handleICECandidate(sess, c, data)
	case "webrtc:screenShare":
		ctl.handleScreenShare(sess, c, data)
	case "note:join":
		ctl.handleNoteJoin(ctx, sess, c, data)
	case "note:leave":
		ctl.handleNoteLeave(sess, c, data)
	case "note:update":
		ctl.handleNoteUpdate(sess, c, data)
	case "note:save":
		ctl.handleNoteSave(ctx, sess, c, data)
	case "note:cursorUpdate":
		ctl.handleNoteCursor(sess, c, data)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
	}
}
