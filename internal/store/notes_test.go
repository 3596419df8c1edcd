package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/collab/internal/domain"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	return NewGateway(db).WithClock(func() time.Time {
		return time.Unix(1700000000, 0).UTC()
	})
}

func TestWriteNoteThenReadBack(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	note := domain.Note{
		NoteID:    "note-1",
		Title:     "Agenda",
		Content:   "first version",
		UpdatedAt: time.Unix(1700000100, 0).UTC(),
	}
	require.NoError(t, g.WriteNote(ctx, note))

	got, err := g.ReadNote(ctx, "note-1")
	require.NoError(t, err)
	require.Equal(t, note, got)
}

func TestReadMissingNote(t *testing.T) {
	g := newTestGateway(t)
	_, err := g.ReadNote(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNoteNotFound)
}

func TestWriteNoteOverwritesExistingRow(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.WriteNote(ctx, domain.Note{NoteID: "note-1", Title: "A", Content: "v1"}))
	require.NoError(t, g.WriteNote(ctx, domain.Note{NoteID: "note-1", Title: "B", Content: "v2"}))

	got, err := g.ReadNote(ctx, "note-1")
	require.NoError(t, err)
	require.Equal(t, "B", got.Title)
	require.Equal(t, "v2", got.Content)
}

func TestWriteNoteDefaultsTimestampFromClock(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.WriteNote(ctx, domain.Note{NoteID: "note-1", Content: "x"}))
	got, err := g.ReadNote(ctx, "note-1")
	require.NoError(t, err)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), got.UpdatedAt)
}

func TestAppendEditGeneratesIDAndListsOldestFirst(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	for i, content := range []string{"v1", "v2", "v3"} {
		require.NoError(t, g.AppendEdit(ctx, domain.NoteEditRecord{
			NoteID:    "note-1",
			UserID:    "u1",
			Content:   content,
			CreatedAt: time.Unix(int64(1700000000+i), 0).UTC(),
		}))
	}
	require.NoError(t, g.AppendEdit(ctx, domain.NoteEditRecord{
		NoteID:  "other-note",
		UserID:  "u2",
		Content: "unrelated",
	}))

	records, err := g.ListEdits(ctx, "note-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, content := range []string{"v1", "v2", "v3"} {
		require.Equal(t, content, records[i].Content)
		require.Equal(t, domain.UserID("u1"), records[i].UserID)
		require.NotEmpty(t, records[i].EditID)
	}
}

func TestListEditsOfUnknownNoteIsEmpty(t *testing.T) {
	g := newTestGateway(t)
	records, err := g.ListEdits(context.Background(), "ghost")
	require.NoError(t, err)
	require.Empty(t, records)
}
