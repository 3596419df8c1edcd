package ws

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
)

// HandleSync runs one document-sync stream: opaque CRDT update frames
// in, verbatim relay out. The first server frame is the fully merged
// state, never a historical replay.
func (ctl *Controller) HandleSync(ctx context.Context, c *gin.Context) {
	identity, ok := ctl.Authenticate(c)
	if !ok {
		return
	}
	documentID := c.Param("documentId")
	if documentID == "" {
		c.Status(400)
		return
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.sync").Msg("upgrade failed")
		return
	}

	conn := newWSConn(socket, websocket.BinaryMessage)
	streamID := core.ConnectionID(uuid.NewString())

	state, err := ctl.Hub.Docs.Join(c.Request.Context(), documentID, streamID, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.sync").Str("doc", documentID).Msg("document join failed")
		conn.Close()
		return
	}
	log.Info().Str("module", "ws.sync").Str("doc", documentID).Str("stream", string(streamID)).Str("user", string(identity.UserID)).Msg("sync stream open")
	_ = conn.TrySend(state)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.syncReadPump(ctx, cancel, documentID, streamID, conn)
}

func (ctl *Controller) syncReadPump(ctx context.Context, cancel context.CancelFunc, documentID string, streamID core.ConnectionID, c *wsConn) {
	defer func() {
		ctl.Hub.Docs.Leave(documentID, streamID)
		log.Info().Str("module", "ws.sync").Str("doc", documentID).Str("stream", string(streamID)).Msg("sync stream closed")
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
				return
			}
			ctl.Hub.Docs.ApplyUpdate(documentID, data, streamID)
		}
	}
}
