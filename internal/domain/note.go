package domain

import "time"

// Note is the durable shape of a shared interview note. Live CRDT state
// is owned by the document hub; this is only what survived the last
// committed save.
type Note struct {
	NoteID    string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// NoteEditRecord is an immutable history entry appended on every
// committed save. Keystroke-level edits never produce one.
type NoteEditRecord struct {
	EditID    string
	NoteID    string
	UserID    UserID
	Content   string
	CreatedAt time.Time
}
