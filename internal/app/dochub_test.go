package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/collab/internal/core"
	"github.com/hireloop/collab/internal/crdt"
	"github.com/hireloop/collab/internal/domain"
)

func newTestDocumentHub(gateway *memGateway) *DocumentHub {
	return NewDocumentHub(gateway, crdt.NewDocumentMerge)
}

func TestJoinMaterializesPersistedContent(t *testing.T) {
	gateway := newMemGateway()
	gateway.notes["note-1"] = domain.Note{NoteID: "note-1", Title: "Agenda", Content: "persisted text"}
	hub := newTestDocumentHub(gateway)

	frame, err := hub.Join(context.Background(), "note-1", "c1", &fakeConn{})
	require.NoError(t, err)

	// The join frame bootstraps a client replica to the full state.
	replica := crdt.New("client")
	require.NoError(t, replica.ApplyUpdate(frame))
	require.Equal(t, "persisted text", replica.Content())

	content, ok := hub.Content("note-1")
	require.True(t, ok)
	require.Equal(t, "persisted text", content)
}

func TestJoinOfUnsavedNoteStartsEmpty(t *testing.T) {
	hub := newTestDocumentHub(newMemGateway())

	frame, err := hub.Join(context.Background(), "fresh", "c1", &fakeConn{})
	require.NoError(t, err)

	replica := crdt.New("client")
	require.NoError(t, replica.ApplyUpdate(frame))
	require.Equal(t, "", replica.Content())
}

func TestJoinSurfacesGatewayFailure(t *testing.T) {
	gateway := newMemGateway()
	gateway.readErr = errors.New("disk on fire")
	hub := newTestDocumentHub(gateway)

	_, err := hub.Join(context.Background(), "note-1", "c1", &fakeConn{})
	require.Error(t, err)
}

func TestApplyUpdateMergesAndRebroadcasts(t *testing.T) {
	hub := newTestDocumentHub(newMemGateway())
	connA, connB := &fakeConn{}, &fakeConn{}

	frameA, err := hub.Join(context.Background(), "note-1", "ca", connA)
	require.NoError(t, err)
	_, err = hub.Join(context.Background(), "note-1", "cb", connB)
	require.NoError(t, err)

	replica := crdt.New("client-a")
	require.NoError(t, replica.ApplyUpdate(frameA))
	update, err := replica.InsertAt(0, "hello")
	require.NoError(t, err)

	hub.ApplyUpdate("note-1", update, "ca")

	content, ok := hub.Content("note-1")
	require.True(t, ok)
	require.Equal(t, "hello", content)

	// Verbatim relay to the other subscriber, nothing back to origin.
	require.Empty(t, connA.sent())
	require.Len(t, connB.sent(), 1)
	require.Equal(t, string(update), string(connB.sent()[0]))
}

func TestRejectedUpdateIsNotRebroadcast(t *testing.T) {
	hub := newTestDocumentHub(newMemGateway())
	connA, connB := &fakeConn{}, &fakeConn{}
	_, err := hub.Join(context.Background(), "note-1", "ca", connA)
	require.NoError(t, err)
	_, err = hub.Join(context.Background(), "note-1", "cb", connB)
	require.NoError(t, err)

	hub.ApplyUpdate("note-1", []byte("garbage"), "ca")

	require.Empty(t, connB.sent())
	content, ok := hub.Content("note-1")
	require.True(t, ok)
	require.Equal(t, "", content)
}

func TestLeaveReleasesReplicaOnLastSubscriber(t *testing.T) {
	hub := newTestDocumentHub(newMemGateway())
	_, err := hub.Join(context.Background(), "note-1", "ca", &fakeConn{})
	require.NoError(t, err)
	_, err = hub.Join(context.Background(), "note-1", "cb", &fakeConn{})
	require.NoError(t, err)

	require.Equal(t, 1, hub.Leave("note-1", "ca"))
	_, ok := hub.Content("note-1")
	require.True(t, ok)

	require.Equal(t, 0, hub.Leave("note-1", "cb"))
	_, ok = hub.Content("note-1")
	require.False(t, ok)
	require.Equal(t, 0, hub.Leave("note-1", "cb"))
}

// A joiner racing the last subscriber's leave must end up on the live
// replica, never on one already released from the hub.
func TestJoinRacingLastLeaveNeverStrandsSubscriber(t *testing.T) {
	hub := newTestDocumentHub(newMemGateway())
	update, err := crdt.New("author").InsertAt(0, "x")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			id := core.ConnectionID(fmt.Sprintf("churn-%d", i))
			if _, err := hub.Join(context.Background(), "note-1", id, &fakeConn{}); err != nil {
				return
			}
			hub.Leave("note-1", id)
		}
	}()

	for i := 0; i < 200; i++ {
		id := core.ConnectionID(fmt.Sprintf("sub-%d", i))
		conn := &fakeConn{}
		_, err := hub.Join(context.Background(), "note-1", id, conn)
		require.NoError(t, err)

		hub.ApplyUpdate("note-1", update, "author")
		require.NotEmpty(t, conn.sent(), "joined subscriber %d missed an update", i)

		hub.Leave("note-1", id)
	}
	<-done
}

func TestSubscribedListsDocumentsPerConnection(t *testing.T) {
	hub := newTestDocumentHub(newMemGateway())
	_, err := hub.Join(context.Background(), "note-1", "ca", &fakeConn{})
	require.NoError(t, err)
	_, err = hub.Join(context.Background(), "note-2", "ca", &fakeConn{})
	require.NoError(t, err)
	_, err = hub.Join(context.Background(), "note-2", "cb", &fakeConn{})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"note-1", "note-2"}, hub.Subscribed("ca"))
	require.ElementsMatch(t, []string{"note-2"}, hub.Subscribed("cb"))
	require.Empty(t, hub.Subscribed("cc"))
}
