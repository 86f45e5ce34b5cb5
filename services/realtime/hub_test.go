package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	logsvc "github.com/Kobu-Labs/nowaster-web-sub002/services/logger"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, r.URL.Query().Get("user")); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	return websocket.DefaultDialer.Dial(url, header)
}

func waitConnections(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Connections(userID) == want }, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubPush(t *testing.T) {
	hub := NewHub([]string{"http://localhost:3000"}, logsvc.NewNopLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	alice, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := dial(t, srv, "bob", nil)
	require.NoError(t, err)
	defer bob.Close()
	waitConnections(t, hub, "alice", 1)
	waitConnections(t, hub, "bob", 1)

	hub.Push("alice", notification.Notification{ID: "n1", UserID: "alice", Type: notification.TypeSystem, Data: []byte(`{"msg":"hi"}`)})

	msg := readMessage(t, alice)
	assert.Equal(t, MessageTypeNotification, msg["type"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "n1", data["id"])
	assert.Equal(t, "system", data["type"])
	assert.Equal(t, map[string]interface{}{"msg": "hi"}, data["data"])

	// bob gets nothing
	assert.Equal(t, 0, hub.Send("carol", Message{Type: "x"}))
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err)
}

func TestHubPing(t *testing.T) {
	hub := NewHub(nil, logsvc.NewNopLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	conn, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MessageTypePong, readMessage(t, conn)["type"])
}

func TestHubUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub(nil, logsvc.NewNopLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	c1, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	c2, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer c2.Close()
	waitConnections(t, hub, "alice", 2)

	require.NoError(t, c1.Close())
	waitConnections(t, hub, "alice", 1)
	assert.Equal(t, 1, hub.Send("alice", Message{Type: "x"}))
}

func TestHubCheckOrigin(t *testing.T) {
	hub := NewHub([]string{"http://localhost:3000"}, logsvc.NewNopLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	_, resp, err := dial(t, srv, "alice", http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "alice", http.Header{"Origin": {"http://localhost:3000"}})
	require.NoError(t, err)
	conn.Close()
}
