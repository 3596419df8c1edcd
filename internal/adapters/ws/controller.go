package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/auth"
	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller serves the event-protocol surface.
type Controller struct {
	Hub      *app.Hub
	Verifier auth.Verifier

	ReadLimit    int64
	PingPeriod   time.Duration
	WriteTimeout time.Duration
}

func NewController(hub *app.Hub, verifier auth.Verifier) *Controller {
	return &Controller{
		Hub:          hub,
		Verifier:     verifier,
		ReadLimit:    32768,
		PingPeriod:   54 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// HandleEvents authenticates, upgrades and runs one event-protocol
// connection. A failed credential rejects the handshake before any
// connection object or room state is created.
func (ctl *Controller) HandleEvents(ctx context.Context, c *gin.Context) {
	identity, ok := ctl.Authenticate(c)
	if !ok {
		return
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	conn := newWSConn(socket, websocket.TextMessage)
	sess := ctl.Hub.Register(identity, conn)
	log.Info().Str("module", "ws").Str("conn", string(sess.ID())).Str("user", string(identity.UserID)).Msg("event connection open")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}

// Authenticate verifies the request credential and writes a 401 response
// when it fails. The boolean reports whether the caller may proceed.
func (ctl *Controller) Authenticate(c *gin.Context) (domain.Identity, bool) {
	credential := auth.ExtractCredential(c.Request)
	identity, err := ctl.Verifier.Verify(c.Request.Context(), credential)
	if err != nil {
		kind := auth.AuthErrorInvalid
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			kind = authErr.Kind
		}
		log.Warn().Err(err).Str("module", "ws").Str("kind", string(kind)).Msg("handshake rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": string(kind)})
		return domain.Identity{}, false
	}
	return identity, true
}

func (ctl *Controller) sendJSON(conn *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = conn.TrySend(b)
}

func (ctl *Controller) sendError(conn *wsConn, reason string) {
	ctl.sendJSON(conn, map[string]any{
		"type":  app.EventError,
		"error": reason,
	})
}

func (ctl *Controller) broadcast(roomID domain.RoomID, v any, excluding core.ConnectionID) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("broadcast marshal")
		return
	}
	ctl.Hub.Rooms.Broadcast(roomID, b, excluding)
}
