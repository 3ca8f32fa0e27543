package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task_webapp/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeed(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go NewClient(r.RemoteAddr, conn, hub).Run()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	require.Equal(t, MsgReady, m.Type)
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub()
	url := startFeed(t, hub)

	a := dial(t, url)
	b := dial(t, url)
	waitForClients(t, hub, 2)

	task := &domain.Task{ID: 7, Title: "Buy milk"}
	hub.Publish(domain.TaskEvent{Type: domain.EventTaskCreated, ID: 7, Task: task})

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev domain.TaskEvent
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, domain.EventTaskCreated, ev.Type)
		assert.Equal(t, int64(7), ev.ID)
		require.NotNil(t, ev.Task)
		assert.Equal(t, "Buy milk", ev.Task.Title)
	}
}

func TestHub_PingPong(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startFeed(t, hub))

	require.NoError(t, conn.WriteJSON(Message{Type: MsgPing}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, MsgPong, m.Type)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startFeed(t, hub))
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	c := &Client{ID: "slow", Hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.Register(c))

	hub.Publish(domain.TaskEvent{Type: domain.EventTaskDeleted, ID: 1})
	assert.Equal(t, 1, hub.Len())

	hub.Publish(domain.TaskEvent{Type: domain.EventTaskDeleted, ID: 2})
	assert.Equal(t, 0, hub.Len())

	msg, ok := <-c.send
	require.True(t, ok)
	var ev domain.TaskEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, int64(1), ev.ID)

	_, ok = <-c.send
	assert.False(t, ok, "send channel should be closed")
}

func TestHub_CloseRejectsNewClients(t *testing.T) {
	hub := NewHub()
	c := &Client{ID: "a", Hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.Register(c))

	hub.Close()
	assert.Equal(t, 0, hub.Len())
	assert.False(t, hub.Register(&Client{ID: "b", Hub: hub, send: make(chan []byte, 1)}))

	// unregistering after close is a no-op
	hub.Unregister(c)
}
