// Package store is the durable side of the subsystem. Everything here
// sits behind PersistenceGateway; live in-memory state never depends on
// the concrete database.
package store

import (
	"context"
	"errors"

	"github.com/hireloop/collab/internal/domain"
)

// ErrNoteNotFound reports a read for a note that was never saved. The
// document hub treats it as an empty document, not a failure.
var ErrNoteNotFound = errors.New("store: note not found")

// PersistenceGateway is the only path from live collaboration state to
// durable storage.
type PersistenceGateway interface {
	// ReadNote returns the last committed state of a note.
	ReadNote(ctx context.Context, noteID string) (domain.Note, error)
	// WriteNote commits the note, creating it on first save.
	WriteNote(ctx context.Context, note domain.Note) error
	// AppendEdit appends one immutable history record.
	AppendEdit(ctx context.Context, record domain.NoteEditRecord) error
	// ListEdits returns a note's history, oldest first.
	ListEdits(ctx context.Context, noteID string) ([]domain.NoteEditRecord, error)
}
