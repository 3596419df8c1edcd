// Package http wires the gin router: health, the two WebSocket
// surfaces, and the note-history read endpoint.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/adapters/ws"
	"github.com/hireloop/collab/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws/events", func(c *gin.Context) {
		ctl.HandleEvents(ctx, c)
	})
	api.GET("/ws/sync/:documentId", func(c *gin.Context) {
		ctl.HandleSync(ctx, c)
	})
	api.GET("/notes/:noteId/history", func(c *gin.Context) {
		handleNoteHistory(ctl, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func handleNoteHistory(ctl *ws.Controller, c *gin.Context) {
	if _, ok := ctl.Authenticate(c); !ok {
		return
	}
	records, err := ctl.Hub.Notes.History(c.Request.Context(), c.Param("noteId"))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("history read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_failed"})
		return
	}
	type historyEntry struct {
		EditID    string    `json:"editId"`
		NoteID    string    `json:"noteId"`
		UserID    string    `json:"userId"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, historyEntry{
			EditID:    rec.EditID,
			NoteID:    rec.NoteID,
			UserID:    string(rec.UserID),
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"edits": out})
}
