package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "queue closed")
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHubRoutesEventsByUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	alice1 := &Client{Hub: hub, Send: make(chan []byte, 4), UserID: 1}
	alice2 := &Client{Hub: hub, Send: make(chan []byte, 4), UserID: 1}
	bob := &Client{Hub: hub, Send: make(chan []byte, 4), UserID: 2}
	hub.Register(alice1)
	hub.Register(alice2)
	hub.Register(bob)
	require.Eventually(t, func() bool { return hub.ClientCount(1) == 2 }, time.Second, time.Millisecond)

	hub.Publish(1, Event{Type: TypeStageCompleted, TrackID: "t1", Stage: "marketplace_publish"})

	for _, c := range []*Client{alice1, alice2} {
		ev := receive(t, c.Send)
		assert.Equal(t, TypeStageCompleted, ev.Type)
		assert.Equal(t, "t1", ev.TrackID)
		assert.NotZero(t, ev.Timestamp)
	}
	select {
	case <-bob.Send:
		t.Fatal("event leaked to another user")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := &Client{Hub: hub, Send: make(chan []byte), UserID: 5}
	hub.Register(slow)
	require.Eventually(t, func() bool { return hub.ClientCount(5) == 1 }, time.Second, time.Millisecond)

	hub.Publish(5, Event{Type: TypeStageStarted})
	require.Eventually(t, func() bool { return hub.ClientCount(5) == 0 }, time.Second, time.Millisecond)
	_, ok := <-slow.Send
	assert.False(t, ok)
}

func TestHubUnregisterAndStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 3}
	hub.Register(c)
	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.ClientCount(3) == 0 }, time.Second, time.Millisecond)

	hub.Stop()
	hub.Stop()
	hub.Register(c)
}

func TestWebsocketPumps(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, 9)
		hub.Register(client)
		go client.WritePump()
		client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(9) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypePong, ev.Type)

	hub.Publish(9, Event{Type: TypeStageFailed, TrackID: "t9", Message: "boom"})
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeStageFailed, ev.Type)
	assert.Equal(t, "boom", ev.Message)
}
