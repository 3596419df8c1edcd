package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/collab/internal/domain"
	"github.com/hireloop/collab/internal/store"
)

// DefaultAutosaveDebounce is the quiet period after the last edit
// before an autosave commits.
const DefaultAutosaveDebounce = 5 * time.Second

const saveTimeout = 10 * time.Second

// NoteEditCoordinator bridges live edits with durable saves. Keystroke
// broadcasts are never individually persisted; only an explicit save or
// the debounce commits, and each commit appends one NoteEditRecord.
type NoteEditCoordinator struct {
	gateway  store.PersistenceGateway
	rooms    *RoomRegistry
	debounce time.Duration
	clock    func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingSave
	saving  map[string]*sync.Mutex
}

type pendingSave struct {
	timer   *time.Timer
	content string
	title   string
	userID  domain.UserID
}

func NewNoteEditCoordinator(gateway store.PersistenceGateway, rooms *RoomRegistry, debounce time.Duration) *NoteEditCoordinator {
	if debounce <= 0 {
		debounce = DefaultAutosaveDebounce
	}
	return &NoteEditCoordinator{
		gateway:  gateway,
		rooms:    rooms,
		debounce: debounce,
		clock:    time.Now,
		pending:  make(map[string]*pendingSave),
		saving:   make(map[string]*sync.Mutex),
	}
}

// ReadNote exposes the durable state for join replies.
func (c *NoteEditCoordinator) ReadNote(ctx context.Context, noteID string) (domain.Note, error) {
	return c.gateway.ReadNote(ctx, noteID)
}

// History returns the committed edit records for a note, oldest first.
func (c *NoteEditCoordinator) History(ctx context.Context, noteID string) ([]domain.NoteEditRecord, error) {
	return c.gateway.ListEdits(ctx, noteID)
}

// DebouncedAutosave schedules a save after the quiet period, resetting
// the timer on every new edit so a typing burst commits exactly once.
func (c *NoteEditCoordinator) DebouncedAutosave(noteID, content, title string, userID domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[noteID]; ok {
		p.timer.Stop()
		p.content, p.title, p.userID = content, title, userID
		p.timer.Reset(c.debounce)
		return
	}
	p := &pendingSave{content: content, title: title, userID: userID}
	p.timer = time.AfterFunc(c.debounce, func() { c.flush(noteID) })
	c.pending[noteID] = p
}

func (c *NoteEditCoordinator) flush(noteID string) {
	c.mu.Lock()
	p, ok := c.pending[noteID]
	if ok {
		delete(c.pending, noteID)
	}
	c.mu.Unlock()
	if !ok {
		return // cancelled between fire and flush
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if _, err := c.commit(ctx, noteID, p.content, p.title, p.userID); err != nil {
		// Live editing continues uninterrupted; nothing rolls back.
		log.Error().Err(err).Str("module", "app.notes").Str("note", noteID).Msg("autosave failed")
		return
	}
	log.Debug().Str("module", "app.notes").Str("note", noteID).Msg("autosaved")
}

// Cancel drops any pending autosave, e.g. once the note room empties.
func (c *NoteEditCoordinator) Cancel(noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[noteID]; ok {
		p.timer.Stop()
		delete(c.pending, noteID)
		log.Debug().Str("module", "app.notes").Str("note", noteID).Msg("autosave cancelled")
	}
}

type savedEvent struct {
	Type      string        `json:"type"`
	NoteID    string        `json:"noteId"`
	Title     string        `json:"title"`
	SavedBy   domain.UserID `json:"savedBy"`
	Timestamp time.Time     `json:"timestamp"`
}

// ExplicitSave is the durability boundary: write through the gateway,
// append one history record, then tell the whole room, saver included,
// who committed and when. A pending autosave is superseded.
func (c *NoteEditCoordinator) ExplicitSave(ctx context.Context, noteID, content, title string, userID domain.UserID) (domain.NoteEditRecord, error) {
	c.Cancel(noteID)
	record, err := c.commit(ctx, noteID, content, title, userID)
	if err != nil {
		return domain.NoteEditRecord{}, err
	}
	frame := encodeJSON(savedEvent{
		Type:      EventNoteSaved,
		NoteID:    noteID,
		Title:     title,
		SavedBy:   userID,
		Timestamp: record.CreatedAt,
	})
	if frame != nil {
		c.rooms.Broadcast(domain.NoteRoom(noteID), frame, "")
	}
	return record, nil
}

// commit serializes saves per noteId so a concurrent second save queues
// behind the first instead of interleaving partial writes.
func (c *NoteEditCoordinator) commit(ctx context.Context, noteID, content, title string, userID domain.UserID) (domain.NoteEditRecord, error) {
	c.mu.Lock()
	lock, ok := c.saving[noteID]
	if !ok {
		lock = &sync.Mutex{}
		c.saving[noteID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	now := c.clock().UTC()
	note := domain.Note{NoteID: noteID, Title: title, Content: content, UpdatedAt: now}
	if err := c.gateway.WriteNote(ctx, note); err != nil {
		return domain.NoteEditRecord{}, err
	}
	record := domain.NoteEditRecord{
		NoteID:    noteID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
	}
	if err := c.gateway.AppendEdit(ctx, record); err != nil {
		return domain.NoteEditRecord{}, err
	}
	return record, nil
}
