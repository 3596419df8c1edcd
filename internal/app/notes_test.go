package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/collab/internal/domain"
)

func TestAutosaveCommitsOncePerTypingBurst(t *testing.T) {
	gateway := newMemGateway()
	coord := NewNoteEditCoordinator(gateway, NewRoomRegistry(), 40*time.Millisecond)

	coord.DebouncedAutosave("note-1", "d", "Draft", "u1")
	coord.DebouncedAutosave("note-1", "dr", "Draft", "u1")
	coord.DebouncedAutosave("note-1", "draft", "Draft", "u1")

	require.Eventually(t, func() bool {
		return gateway.editCount("note-1") == 1
	}, time.Second, 10*time.Millisecond)

	note, ok := gateway.storedNote("note-1")
	require.True(t, ok)
	require.Equal(t, "draft", note.Content)
	require.Equal(t, "Draft", note.Title)

	// Quiet period over: no further commits appear.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, gateway.editCount("note-1"))
}

func TestAutosaveTimerResetsOnEveryEdit(t *testing.T) {
	gateway := newMemGateway()
	coord := NewNoteEditCoordinator(gateway, NewRoomRegistry(), 80*time.Millisecond)

	// Keep editing faster than the debounce window.
	for i := 0; i < 4; i++ {
		coord.DebouncedAutosave("note-1", "typing", "Draft", "u1")
		time.Sleep(30 * time.Millisecond)
	}
	require.Equal(t, 0, gateway.editCount("note-1"))

	require.Eventually(t, func() bool {
		return gateway.editCount("note-1") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCancelDropsPendingAutosave(t *testing.T) {
	gateway := newMemGateway()
	coord := NewNoteEditCoordinator(gateway, NewRoomRegistry(), 30*time.Millisecond)

	coord.DebouncedAutosave("note-1", "never saved", "Draft", "u1")
	coord.Cancel("note-1")

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, gateway.editCount("note-1"))
	_, ok := gateway.storedNote("note-1")
	require.False(t, ok)
}

func TestExplicitSaveCommitsAndNotifiesWholeRoom(t *testing.T) {
	gateway := newMemGateway()
	rooms := NewRoomRegistry()
	coord := NewNoteEditCoordinator(gateway, rooms, time.Minute)

	saver, saverConn := newTestSession("c1", "u1", domain.RoleRecruiter)
	peer, peerConn := newTestSession("c2", "u2", domain.RoleCandidate)
	rooms.Join(domain.NoteRoom("note-1"), saver)
	rooms.Join(domain.NoteRoom("note-1"), peer)

	record, err := coord.ExplicitSave(context.Background(), "note-1", "final text", "Summary", "u1")
	require.NoError(t, err)
	require.Equal(t, "note-1", record.NoteID)
	require.Equal(t, domain.UserID("u1"), record.UserID)
	require.False(t, record.CreatedAt.IsZero())

	note, ok := gateway.storedNote("note-1")
	require.True(t, ok)
	require.Equal(t, "final text", note.Content)
	require.Equal(t, 1, gateway.editCount("note-1"))

	// The saver hears the confirmation too.
	require.Equal(t, []string{EventNoteSaved}, saverConn.sentTypes(t))
	require.Equal(t, []string{EventNoteSaved}, peerConn.sentTypes(t))

	var event struct {
		NoteID  string `json:"noteId"`
		Title   string `json:"title"`
		SavedBy string `json:"savedBy"`
	}
	require.NoError(t, json.Unmarshal(peerConn.sent()[0], &event))
	require.Equal(t, "note-1", event.NoteID)
	require.Equal(t, "Summary", event.Title)
	require.Equal(t, "u1", event.SavedBy)
}

func TestExplicitSaveSupersedesPendingAutosave(t *testing.T) {
	gateway := newMemGateway()
	coord := NewNoteEditCoordinator(gateway, NewRoomRegistry(), 50*time.Millisecond)

	coord.DebouncedAutosave("note-1", "stale draft", "Draft", "u1")
	_, err := coord.ExplicitSave(context.Background(), "note-1", "final", "Draft", "u1")
	require.NoError(t, err)

	// The pending autosave never fires on top of the explicit save.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, gateway.editCount("note-1"))
	note, _ := gateway.storedNote("note-1")
	require.Equal(t, "final", note.Content)
}

func TestExplicitSaveSurfacesGatewayFailure(t *testing.T) {
	gateway := newMemGateway()
	gateway.writeErr = errors.New("disk full")
	rooms := NewRoomRegistry()
	coord := NewNoteEditCoordinator(gateway, rooms, time.Minute)

	peer, peerConn := newTestSession("c1", "u1", domain.RoleRecruiter)
	rooms.Join(domain.NoteRoom("note-1"), peer)

	_, err := coord.ExplicitSave(context.Background(), "note-1", "text", "T", "u1")
	require.Error(t, err)
	require.Equal(t, 0, gateway.editCount("note-1"))
	require.Empty(t, peerConn.sent())
}

func TestAutosaveFailureLeavesLiveEditingAlone(t *testing.T) {
	gateway := newMemGateway()
	gateway.writeErr = errors.New("disk full")
	coord := NewNoteEditCoordinator(gateway, NewRoomRegistry(), 20*time.Millisecond)

	coord.DebouncedAutosave("note-1", "doomed", "T", "u1")
	time.Sleep(100 * time.Millisecond)

	// Failure is logged only; a later save can still succeed.
	gateway.mu.Lock()
	gateway.writeErr = nil
	gateway.mu.Unlock()
	coord.DebouncedAutosave("note-1", "recovered", "T", "u1")
	require.Eventually(t, func() bool {
		return gateway.editCount("note-1") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHistoryReturnsCommittedRecords(t *testing.T) {
	gateway := newMemGateway()
	coord := NewNoteEditCoordinator(gateway, NewRoomRegistry(), time.Minute)

	_, err := coord.ExplicitSave(context.Background(), "note-1", "v1", "T", "u1")
	require.NoError(t, err)
	_, err = coord.ExplicitSave(context.Background(), "note-1", "v2", "T", "u2")
	require.NoError(t, err)

	records, err := coord.History(context.Background(), "note-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "v1", records[0].Content)
	require.Equal(t, "v2", records[1].Content)
}
