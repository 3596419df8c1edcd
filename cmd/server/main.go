package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/app"
	"github.com/hireloop/collab/internal/auth"
	"github.com/hireloop/collab/internal/config"
	"github.com/hireloop/collab/internal/crdt"
	"github.com/hireloop/collab/internal/presence"
	"github.com/hireloop/collab/internal/store"

	router "github.com/hireloop/collab/internal/adapters/http"
	"github.com/hireloop/collab/internal/adapters/ws"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	verifier, err := auth.NewTokenVerifier(auth.TokenVerifierConfig{
		SigningSecret: []byte(cfg.Secret),
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("token verifier setup failed")
	}

	db, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("database open failed")
	}
	gateway := store.NewGateway(db)

	conns := app.NewConnectionRegistry()
	rooms := app.NewRoomRegistry()
	notes := app.NewNoteEditCoordinator(gateway, rooms, cfg.AutosaveDebounce)

	var mirror app.PresenceMirror
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		mirror = presence.NewMirror(rdb)
		log.Info().Str("module", "main").Str("addr", cfg.RedisAddr).Msg("presence mirror enabled")
	}

	hub := app.NewHub(app.HubDeps{
		Conns:    conns,
		Rooms:    rooms,
		Relay:    app.NewSignalingRelay(conns),
		Notifier: app.NewPresenceNotifier(conns, rooms),
		Docs:     app.NewDocumentHub(gateway, crdt.NewDocumentMerge),
		Notes:    notes,
		Mirror:   mirror,
	})

	ctl := ws.NewController(hub, verifier)
	ctl.ReadLimit = cfg.ReadLimit
	ctl.PingPeriod = cfg.PingPeriod
	ctl.WriteTimeout = cfg.WriteTimeout

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("collab server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
