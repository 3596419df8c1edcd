package ws

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/collab/internal/crdt"
	"github.com/hireloop/collab/internal/domain"
)

func (env *testEnv) dialSync(t *testing.T, documentID, userID string) *websocket.Conn {
	t.Helper()
	url := env.wsURL("/api/ws/sync/"+documentID, mintToken(t, userID, domain.RoleRecruiter))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readBinary(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, kind)
	return data
}

func TestSyncStreamRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("/api/ws/sync/note-1", ""), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSyncStreamBootstrapsPersistedState(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.gateway.WriteNote(context.Background(), domain.Note{
		NoteID:  "note-1",
		Title:   "Screening",
		Content: "agreed on next steps",
	}))

	conn := env.dialSync(t, "note-1", "u1")

	replica := crdt.New("client-a")
	require.NoError(t, replica.ApplyUpdate(readBinary(t, conn)))
	require.Equal(t, "agreed on next steps", replica.Content())
}

func TestSyncStreamRelaysUpdatesBetweenPeers(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dialSync(t, "note-1", "u1")
	bob := env.dialSync(t, "note-1", "u2")

	aliceDoc := crdt.New("client-a")
	require.NoError(t, aliceDoc.ApplyUpdate(readBinary(t, alice)))
	bobDoc := crdt.New("client-b")
	require.NoError(t, bobDoc.ApplyUpdate(readBinary(t, bob)))

	frame, err := aliceDoc.InsertAt(0, "hello")
	require.NoError(t, err)
	require.NoError(t, alice.WriteMessage(websocket.BinaryMessage, frame))

	relayed := readBinary(t, bob)
	require.Equal(t, frame, relayed)
	require.NoError(t, bobDoc.ApplyUpdate(relayed))
	require.Equal(t, "hello", bobDoc.Content())

	// The server replica merged the same update.
	require.Eventually(t, func() bool {
		content, ok := env.ctl.Hub.Docs.Content("note-1")
		return ok && content == "hello"
	}, time.Second, 10*time.Millisecond)
}

func TestSyncStreamDropsMalformedFramesWithoutRelay(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dialSync(t, "note-1", "u1")
	bob := env.dialSync(t, "note-1", "u2")

	aliceDoc := crdt.New("client-a")
	require.NoError(t, aliceDoc.ApplyUpdate(readBinary(t, alice)))
	readBinary(t, bob)

	require.NoError(t, alice.WriteMessage(websocket.BinaryMessage, []byte("not a frame")))
	frame, err := aliceDoc.InsertAt(0, "x")
	require.NoError(t, err)
	require.NoError(t, alice.WriteMessage(websocket.BinaryMessage, frame))

	// Only the well-formed update comes through.
	require.Equal(t, frame, readBinary(t, bob))
}

func TestSyncStreamClosureReleasesReplica(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dialSync(t, "note-1", "u1")
	readBinary(t, conn)
	_, ok := env.ctl.Hub.Docs.Content("note-1")
	require.True(t, ok)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		_, ok := env.ctl.Hub.Docs.Content("note-1")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
