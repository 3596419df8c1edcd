package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/crdt"
	"github.com/hireloop/collab/internal/store"
)

// DocumentHub keeps one authoritative CRDT replica per shared note and
// relays update frames between its subscribers. It never interprets
// frame content; convergence is the merge engine's contract.
type DocumentHub struct {
	gateway store.PersistenceGateway
	factory crdt.Factory

	mu   sync.Mutex
	docs map[string]*docState
}

type docState struct {
	mu   sync.Mutex
	doc  crdt.DocumentMerge
	subs map[core.ConnectionID]core.SignalConnection
}

func NewDocumentHub(gateway store.PersistenceGateway, factory crdt.Factory) *DocumentHub {
	return &DocumentHub{
		gateway: gateway,
		factory: factory,
		docs:    make(map[string]*docState),
	}
}

// Join subscribes a connection and returns the fully merged state as a
// single frame, never a historical replay. The first join materializes
// the replica from the last persisted content.
func (h *DocumentHub) Join(ctx context.Context, documentID string, id core.ConnectionID, conn core.SignalConnection) (core.Frame, error) {
	for {
		state, err := h.getOrCreate(ctx, documentID)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		if h.docs[documentID] != state {
			// The last subscriber left and released this replica while
			// we were between lookup and subscribe; start over.
			h.mu.Unlock()
			continue
		}
		state.mu.Lock()
		state.subs[id] = conn
		subs := len(state.subs)
		frame := state.doc.Serialize()
		state.mu.Unlock()
		h.mu.Unlock()
		log.Info().Str("module", "app.dochub").Str("doc", documentID).Str("conn", string(id)).Int("subs", subs).Msg("stream joined")
		return frame, nil
	}
}

func (h *DocumentHub) getOrCreate(ctx context.Context, documentID string) (*docState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.docs[documentID]; ok {
		return state, nil
	}
	content := ""
	note, err := h.gateway.ReadNote(ctx, documentID)
	switch {
	case err == nil:
		content = note.Content
	case errors.Is(err, store.ErrNoteNotFound):
		// First collaboration on a brand-new note.
	default:
		return nil, err
	}
	state := &docState{
		doc:  h.factory(documentID, content),
		subs: make(map[core.ConnectionID]core.SignalConnection),
	}
	h.docs[documentID] = state
	log.Info().Str("module", "app.dochub").Str("doc", documentID).Msg("document materialized")
	return state, nil
}

// ApplyUpdate merges the frame into the authoritative replica and
// rebroadcasts it verbatim to every other subscriber. A frame the
// engine rejects is logged and goes nowhere.
func (h *DocumentHub) ApplyUpdate(documentID string, frame core.Frame, origin core.ConnectionID) {
	h.mu.Lock()
	state, ok := h.docs[documentID]
	h.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "app.dochub").Str("doc", documentID).Msg("update for unmaterialized document")
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if err := state.doc.ApplyUpdate(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.dochub").Str("doc", documentID).Str("conn", string(origin)).Msg("rejected update frame")
		return
	}
	for id, conn := range state.subs {
		if id == origin {
			continue
		}
		_ = conn.TrySend(frame)
	}
}

// Leave drops the subscription and reports how many remain; the replica
// is released once the last subscriber departs.
func (h *DocumentHub) Leave(documentID string, id core.ConnectionID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.docs[documentID]
	if !ok {
		return 0
	}
	state.mu.Lock()
	delete(state.subs, id)
	remaining := len(state.subs)
	state.mu.Unlock()
	if remaining == 0 {
		delete(h.docs, documentID)
		log.Info().Str("module", "app.dochub").Str("doc", documentID).Msg("document released")
	}
	return remaining
}

// Subscribed lists the documents a connection currently streams.
func (h *DocumentHub) Subscribed(id core.ConnectionID) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for documentID, state := range h.docs {
		state.mu.Lock()
		_, ok := state.subs[id]
		state.mu.Unlock()
		if ok {
			out = append(out, documentID)
		}
	}
	return out
}

// Content renders the current merged text of a materialized document.
func (h *DocumentHub) Content(documentID string) (string, bool) {
	h.mu.Lock()
	state, ok := h.docs[documentID]
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.doc.Content(), true
}
