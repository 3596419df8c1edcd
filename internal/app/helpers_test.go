package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/domain"
	"github.com/hireloop/collab/internal/store"
)

var errSendClosed = errors.New("send on closed fake")

// fakeConn records every frame handed to TrySend. Setting fail makes
// every send report backpressure.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errSendClosed
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) sent() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) sentTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, frame := range c.sent() {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &envelope); err != nil {
			t.Fatalf("undecodable frame %q: %v", frame, err)
		}
		types = append(types, envelope.Type)
	}
	return types
}

func newTestSession(id, userID string, role domain.Role) (core.ClientSession, *fakeConn) {
	conn := &fakeConn{}
	identity := domain.Identity{
		UserID:          domain.UserID(userID),
		Role:            role,
		AuthenticatedAt: time.Unix(1700000000, 0).UTC(),
	}
	return core.NewClientSession(core.ConnectionID(id), identity, conn), conn
}

// memGateway is an in-memory PersistenceGateway with injectable
// failures.
type memGateway struct {
	mu       sync.Mutex
	notes    map[string]domain.Note
	edits    map[string][]domain.NoteEditRecord
	readErr  error
	writeErr error
}

func newMemGateway() *memGateway {
	return &memGateway{
		notes: make(map[string]domain.Note),
		edits: make(map[string][]domain.NoteEditRecord),
	}
}

func (g *memGateway) ReadNote(_ context.Context, noteID string) (domain.Note, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return domain.Note{}, g.readErr
	}
	note, ok := g.notes[noteID]
	if !ok {
		return domain.Note{}, store.ErrNoteNotFound
	}
	return note, nil
}

func (g *memGateway) WriteNote(_ context.Context, note domain.Note) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	g.notes[note.NoteID] = note
	return nil
}

func (g *memGateway) AppendEdit(_ context.Context, record domain.NoteEditRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits[record.NoteID] = append(g.edits[record.NoteID], record)
	return nil
}

func (g *memGateway) ListEdits(_ context.Context, noteID string) ([]domain.NoteEditRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.NoteEditRecord, len(g.edits[noteID]))
	copy(out, g.edits[noteID])
	return out, nil
}

func (g *memGateway) storedNote(noteID string) (domain.Note, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	note, ok := g.notes[noteID]
	return note, ok
}

func (g *memGateway) editCount(noteID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edits[noteID])
}
