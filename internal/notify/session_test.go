package notify

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.Atoi(r.URL.Query().Get("user"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(uint(userID), ws)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID int) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.Itoa(userID)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return ws
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestServe_EndToEnd(t *testing.T) {
	hub := NewHub()
	srv := newWSServer(t, hub)

	first := dial(t, srv, 1)
	second := dial(t, srv, 1)
	waitFor(t, func() bool { return hub.Connections(1) == 2 })

	assert.Equal(t, 2, hub.Push(1, sampleNotification()))

	for _, ws := range []*websocket.Conn{first, second} {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg Message
		require.NoError(t, ws.ReadJSON(&msg))
		assert.Equal(t, MessageTypeNotification, msg.Type)
		assert.Equal(t, uint(7), msg.Data.ID)
	}

	require.NoError(t, first.Close())
	waitFor(t, func() bool { return hub.Connections(1) == 1 })

	assert.Equal(t, 1, hub.Push(1, sampleNotification()))
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, second.ReadJSON(&msg))

	require.NoError(t, second.Close())
	waitFor(t, func() bool { return hub.Users() == 0 })
}
